package model

import "slices"

// Table is a parsed CSV file: the header and its rows.
type Table struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// Column returns the values of the named column. Short rows give "".
func (t Table) Column(name string) ([]string, bool) {
	idx := slices.Index(t.Header, name)
	if idx < 0 {
		return nil, false
	}
	values := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		if idx < len(row) {
			values = append(values, row[idx])
		} else {
			values = append(values, "")
		}
	}
	return values, true
}
