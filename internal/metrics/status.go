package metrics

import (
	"sort"
	"strconv"
)

// StatusBucket is one row of a status histogram.
type StatusBucket struct {
	Code  int
	Count int
}

// Label renders the code, using "none" for outcomes without a response.
func (b StatusBucket) Label() string {
	if b.Code <= 0 {
		return "none"
	}
	return strconv.Itoa(b.Code)
}

// FlattenStatusHistogram converts a histogram into rows sorted by ascending code.
func FlattenStatusHistogram(hist map[int]int) []StatusBucket {
	if len(hist) == 0 {
		return nil
	}
	rows := make([]StatusBucket, 0, len(hist))
	for code, count := range hist {
		rows = append(rows, StatusBucket{Code: code, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Code < rows[j].Code })
	return rows
}

// DetailCount is one row of an error detail breakdown.
type DetailCount struct {
	Detail string
	Count  int
}

// SortedDetails returns the details ordered by descending count, then by text
// for stability.
func SortedDetails(details map[string]int) []DetailCount {
	if len(details) == 0 {
		return nil
	}
	rows := make([]DetailCount, 0, len(details))
	for detail, count := range details {
		rows = append(rows, DetailCount{Detail: detail, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Detail < rows[j].Detail
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}
