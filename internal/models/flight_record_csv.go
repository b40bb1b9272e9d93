package models

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV writes a header row of column names followed by one row per record.
// No index column is written. An empty table produces a single empty header line.
func (t *FlightRecordTable) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(t.Columns()); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i := range t.rows {
		row := t.Row(i)
		if len(row) == 1 && row[0] == "" {
			// encoding/csv renders a lone empty field as a blank line, which
			// readers skip. Quote it so the record survives.
			cw.Flush()
			if err := cw.Error(); err != nil {
				return fmt.Errorf("failed to write CSV row %d: %w", i, err)
			}
			if _, err := io.WriteString(w, "\"\"\n"); err != nil {
				return fmt.Errorf("failed to write CSV row %d: %w", i, err)
			}
			continue
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}

	return nil
}

// CSV renders the table into memory
func (t *FlightRecordTable) CSV() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.WriteCSV(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
