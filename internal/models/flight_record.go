package models

// Field is one named value of a flight record, kept in its textual form.
// Null JSON values are stored as an empty string.
type Field struct {
	Name  string
	Value string
}

// FlightRecordTable holds the flight records returned by one API call.
// Columns are ordered by first appearance across records; the table imposes
// no schema and does no type coercion.
type FlightRecordTable struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// NewFlightRecordTable returns an empty table with no columns
func NewFlightRecordTable() *FlightRecordTable {
	return &FlightRecordTable{
		index: make(map[string]int),
	}
}

// AddRecord appends one record. Unknown field names extend the column set;
// cells of earlier rows for those columns read as empty.
// A repeated field name within a record keeps the last value.
func (t *FlightRecordTable) AddRecord(fields []Field) {
	row := make([]string, len(t.columns))
	for _, f := range fields {
		idx, ok := t.index[f.Name]
		if !ok {
			idx = len(t.columns)
			t.index[f.Name] = idx
			t.columns = append(t.columns, f.Name)
		}
		for len(row) <= idx {
			row = append(row, "")
		}
		row[idx] = f.Value
	}
	t.rows = append(t.rows, row)
}

// Len returns the number of records
func (t *FlightRecordTable) Len() int {
	return len(t.rows)
}

// Columns returns a copy of the column names in order
func (t *FlightRecordTable) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Row returns record i with one cell per column
func (t *FlightRecordTable) Row(i int) []string {
	row := make([]string, len(t.columns))
	copy(row, t.rows[i])
	return row
}
