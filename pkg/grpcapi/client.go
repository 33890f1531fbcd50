package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Reply is the decoded Forecast response.
type Reply struct {
	Key     string
	CSV     string
	Rows    int
	Cached  bool
	Missing []string
}

// Client calls ForecastService over a connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient returns a Client using cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Forecast requests horizon forecasts for ids.
func (c *Client) Forecast(ctx context.Context, ids []string, horizon int, opts ...grpc.CallOption) (*Reply, error) {
	list := make([]any, len(ids))
	for i, id := range ids {
		list[i] = id
	}
	req, err := structpb.NewStruct(map[string]any{
		"product_ids": list,
		"horizon":     horizon,
	})
	if err != nil {
		return nil, err
	}

	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ForecastMethod, req, out, opts...); err != nil {
		return nil, err
	}

	f := out.GetFields()
	reply := &Reply{
		Key:    f["key"].GetStringValue(),
		CSV:    f["csv"].GetStringValue(),
		Rows:   int(f["rows"].GetNumberValue()),
		Cached: f["cached"].GetBoolValue(),
	}
	for _, v := range f["missing"].GetListValue().GetValues() {
		reply.Missing = append(reply.Missing, v.GetStringValue())
	}
	return reply, nil
}
