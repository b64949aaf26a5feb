// Package seatmap holds the in-memory availability model of the venue: the
// row label ordering, the Availability Map derived from the catalog,
// reservations and holds, the contiguous block search and the projector
// that keeps a live map current from change events.
package seatmap

import (
	"sort"
	"strings"
)

// NormalizeRow trims a row label and converts it to upper case.
func NormalizeRow(label string) string {
	return strings.ToUpper(strings.TrimSpace(label))
}

// RowIndex converts a row label like A or AA into its one-based position
// when read as a bijective base-26 number (A=1 … Z=26, AA=27).  Labels
// containing anything other than ASCII letters report ok=false.
func RowIndex(label string) (int, bool) {
	s := NormalizeRow(label)
	if s == "" {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch < 'A' || ch > 'Z' {
			return 0, false
		}
		n = n*26 + int(ch-'A'+1)
	}
	return n, true
}

// RowLabel is the inverse of RowIndex.  It returns "" for i < 1.
func RowLabel(i int) string {
	if i < 1 {
		return ""
	}
	var res []byte
	for i > 0 {
		i--
		res = append(res, byte('A'+i%26))
		i /= 26
	}
	for j, k := 0, len(res)-1; j < k; j, k = j+1, k-1 {
		res[j], res[k] = res[k], res[j]
	}
	return string(res)
}

// SortRows orders row labels for display by their base-26 value, so
// ["B","AA","A"] becomes ["A","B","AA"].  Labels that are not purely
// alphabetic sort after the alphabetic ones, lexicographically.
func SortRows(rows []string) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, okA := RowIndex(rows[i])
		b, okB := RowIndex(rows[j])
		switch {
		case okA && okB:
			return a < b
		case okA != okB:
			return okA
		default:
			return rows[i] < rows[j]
		}
	})
}

// FilterRows keeps the labels starting with prefix (case-insensitive).
// An empty prefix keeps everything.
func FilterRows(rows []string, prefix string) []string {
	p := NormalizeRow(prefix)
	if p == "" {
		return rows
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		if strings.HasPrefix(NormalizeRow(r), p) {
			out = append(out, r)
		}
	}
	return out
}
