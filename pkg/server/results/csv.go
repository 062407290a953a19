package results

import (
	"encoding/csv"
	"strings"

	"github.com/aleksaelezovic/kifql/pkg/model"
)

// FormatRecordsCSV renders records as CSV with a header row.
func FormatRecordsCSV(records []model.Record) ([]byte, error) {
	var builder strings.Builder
	w := csv.NewWriter(&builder)

	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, r := range records {
		if err := w.Write(flatten(r)); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return []byte(builder.String()), nil
}
