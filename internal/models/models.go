package models

import (
	"strconv"
)

// Record maps column names to cell values.
type Record map[string]string

// Row is anything that can be written as one output line.
type Row interface {
	Record() Record
}

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
