// Package paging holds the take/skip/name/alls contract shared by every list endpoint.
package paging

import "strings"

// DefaultTake is applied when a caller passes take <= 0.
const DefaultTake = 10

// Query selects a window of records matching an optional name filter.
// Alls returns every match and ignores Take/Skip.
type Query struct {
	Take int
	Skip int
	Name string
	Alls bool
}

// Normalize applies defaults: take<=0 becomes DefaultTake, negative skip becomes 0.
func (q Query) Normalize() Query {
	if q.Take <= 0 {
		q.Take = DefaultTake
	}
	if q.Skip < 0 {
		q.Skip = 0
	}
	q.Name = strings.TrimSpace(q.Name)
	return q
}

// Matches reports whether name contains the filter, case-insensitively.
func (q Query) Matches(name string) bool {
	if q.Name == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(q.Name))
}

// Page is a window of records plus the total number of matches.
type Page[T any] struct {
	Data  []T   `json:"data"`
	Count int64 `json:"count"`
}

// Window returns the [start,end) bounds of the page inside total matches.
func (q Query) Window(total int) (int, int) {
	if q.Alls {
		return 0, total
	}
	start := q.Skip
	if start > total {
		start = total
	}
	end := start + q.Take
	if end > total {
		end = total
	}
	return start, end
}

// Slice applies Window to an already filtered slice.
func Slice[T any](q Query, matches []T) Page[T] {
	q = q.Normalize()
	start, end := q.Window(len(matches))
	data := make([]T, end-start)
	copy(data, matches[start:end])
	return Page[T]{Data: data, Count: int64(len(matches))}
}
