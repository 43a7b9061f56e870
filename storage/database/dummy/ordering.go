package dummydb

import (
	"sort"
	"strings"
	"time"

	"github.com/trezcool/masomo/core"
)

// entry holds the sortable columns of folders & records.
type entry struct {
	id        string
	label     string
	createdAt time.Time
	updatedAt time.Time
}

// defaultOrdering mirrors the SQL repositories: oldest first.
var defaultOrdering = []core.DBOrdering{{Field: "created_at", Ascending: true}}

var sortable = map[string]bool{"label": true, "created_at": true, "updated_at": true}

// sortEntries sorts n entries in place. Unknown ordering fields are ignored; ties are broken by ID.
func sortEntries(n int, ordering []core.DBOrdering, at func(i int) entry, swap func(i, j int)) {
	known := make([]core.DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		if sortable[ord.Field] {
			known = append(known, ord)
		}
	}
	if len(known) == 0 {
		known = defaultOrdering
	}
	sort.Sort(entrySorter{n: n, ordering: known, at: at, swap: swap})
}

type entrySorter struct {
	n        int
	ordering []core.DBOrdering
	at       func(i int) entry
	swap     func(i, j int)
}

func (s entrySorter) Len() int      { return s.n }
func (s entrySorter) Swap(i, j int) { s.swap(i, j) }

func (s entrySorter) Less(i, j int) bool {
	a, b := s.at(i), s.at(j)
	for _, ord := range s.ordering {
		cmp := compare(a, b, ord.Field)
		if cmp == 0 {
			continue
		}
		if ord.Ascending {
			return cmp < 0
		}
		return cmp > 0
	}
	return a.id < b.id
}

func compare(a, b entry, field string) int {
	switch field {
	case "label":
		return strings.Compare(strings.ToLower(a.label), strings.ToLower(b.label))
	case "created_at":
		return compareTime(a.createdAt, b.createdAt)
	case "updated_at":
		return compareTime(a.updatedAt, b.updatedAt)
	}
	return 0
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}
