package adapters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const defaultPageSize = 1000

// PostgRESTAdapter reads every row of a table from a PostgREST endpoint such
// as the one Supabase exposes under /rest/v1. Rows are paged with
// limit/offset, ordered by OrderBy, until a short page is returned.
type PostgRESTAdapter struct {
	// BaseURL is the project URL, e.g. https://xyz.supabase.co
	BaseURL string
	// APIKey is sent as both the apikey header and a bearer token.
	APIKey string
	// Table is the table to read.
	Table string
	// OrderBy is the column pages are sorted on. It must be unique for
	// paging to neither skip nor repeat rows. Defaults to "id".
	OrderBy string
	// PageSize defaults to 1000 when <= 0.
	PageSize int
	// HTTPClient is optional; a client with a 30s timeout is used when nil.
	HTTPClient *http.Client
}

func (p *PostgRESTAdapter) Name() string { return "postgrest" }

// Collect implements Adapter.
func (p *PostgRESTAdapter) Collect(ctx context.Context) (*DataFrame, error) {
	if p.BaseURL == "" || p.Table == "" {
		return nil, errors.New("postgrest adapter: BaseURL and Table are required")
	}

	base, err := url.Parse(strings.TrimRight(p.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid BaseURL: %w", err)
	}
	base.Path = base.Path + "/rest/v1/" + url.PathEscape(p.Table)

	pageSize := p.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	cli := p.HTTPClient
	if cli == nil {
		cli = &http.Client{Timeout: 30 * time.Second}
	}

	rows := make([]Row, 0)
	for offset := 0; ; offset += pageSize {
		page, err := p.fetchPage(ctx, cli, *base, pageSize, offset)
		if err != nil {
			return nil, err
		}
		rows = append(rows, page...)
		if len(page) < pageSize {
			break
		}
	}

	return &DataFrame{Rows: rows}, nil
}

func (p *PostgRESTAdapter) fetchPage(ctx context.Context, cli *http.Client, u url.URL, limit, offset int) ([]Row, error) {
	q := u.Query()
	orderBy := p.OrderBy
	if orderBy == "" {
		orderBy = "id"
	}
	q.Set("select", "*")
	q.Set("order", orderBy+".asc")
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if p.APIKey != "" {
		req.Header.Set("apikey", p.APIKey)
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}

	resp, err := cli.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("postgrest: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var page []Row
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&page); err != nil {
		return nil, fmt.Errorf("decode postgrest response: %w", err)
	}
	return page, nil
}
