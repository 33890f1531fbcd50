package engine

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/HatiCode/demandcast/pkg/domain"
)

// DateLayout is the ds format of serialized forecasts.
const DateLayout = "2006-01-02"

// WriteCSV writes res as a header-first table: unique_id, ds, then the value
// columns.
func WriteCSV(w io.Writer, res *domain.ForecastResult) error {
	cw := csv.NewWriter(w)

	header := append([]string{"unique_id", "ds"}, res.Columns...)
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for _, row := range res.Rows {
		record = record[:2]
		record[0] = string(row.UniqueID)
		record[1] = row.DS.UTC().Format(DateLayout)
		for _, v := range row.Values {
			record = append(record, strconv.FormatFloat(v, 'f', -1, 64))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// MarshalCSV returns res serialized by WriteCSV.
func MarshalCSV(res *domain.ForecastResult) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, res); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
