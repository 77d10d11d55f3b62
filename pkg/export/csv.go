package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strings"

	"github.com/vanderheijden86/reqdb/pkg/model"
)

// cellSeparator joins multi-valued cells (tags, topic chain).
const cellSeparator = "\r\n"

// CSVHeader returns the column names: the fixed row fields followed by the
// configured extra headers ordered by ExtraType id. Bookkeeping fields (id,
// path, comments, selection and visibility flags) are never exported.
func CSVHeader(headers map[int]string) []string {
	cols := []string{"Key", "Title", "Description", "Tags", "Topics"}
	for _, id := range headerIDs(headers) {
		cols = append(cols, headers[id])
	}
	return cols
}

// EncodeCSV writes one record per selected row, keeping row order.
func EncodeCSV(rows []model.Row, selected map[int]struct{}, headers map[int]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.UseCRLF = true

	if err := w.Write(CSVHeader(headers)); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	ids := headerIDs(headers)
	for _, r := range rows {
		if _, ok := selected[r.ID]; !ok {
			continue
		}
		rec := []string{
			r.Key,
			r.Title,
			r.Description,
			strings.Join(r.Tags, cellSeparator),
			strings.Join(r.Topics, cellSeparator),
		}
		for _, id := range ids {
			rec = append(rec, r.Extra(id))
		}
		if err := w.Write(rec); err != nil {
			return nil, fmt.Errorf("write csv row %s: %w", r.Key, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func headerIDs(headers map[int]string) []int {
	ids := make([]int, 0, len(headers))
	for id := range headers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
