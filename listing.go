package srcview

import (
	"cmp"
	"slices"
	"strings"

	"github.com/meigma/srcview/internal/pathutil"
)

// SortKey selects the order of a listing.
type SortKey string

// Sort keys accepted in the "by" request parameter.
const (
	SortName     SortKey = "name"
	SortOldest   SortKey = "oldest"
	SortNewest   SortKey = "newest"
	SortSmallest SortKey = "smallest"
	SortLargest  SortKey = "largest"
)

// ParseSortKey maps a request value to a SortKey. The empty string and
// unknown values map to SortName; ok is false only for unknown values.
func ParseSortKey(s string) (key SortKey, ok bool) {
	switch k := SortKey(s); k {
	case "":
		return SortName, true
	case SortName, SortOldest, SortNewest, SortSmallest, SortLargest:
		return k, true
	default:
		return SortName, false
	}
}

// Child is an immediate child of a listed directory.
type Child struct {
	Entry

	// Short is the path relative to the listed term, e.g. "menu.c" or "gui/".
	Short string
}

// Listing is the set of immediate children of one term, in display order.
type Listing struct {
	// Base is the archive's base prefix; "" when the archive could not be read.
	Base string

	// Term is the listed directory, resolved against Base.
	Term string

	By       SortKey
	Children []Child
}

// Select returns the immediate children of term: entries under term whose
// remaining path is non-empty and has no separator except a trailing one.
// Order follows entries.
func Select(entries []Entry, term string) []Child {
	var children []Child
	for _, e := range entries {
		short, ok := pathutil.Child(e.Path, term)
		if !ok {
			continue
		}
		children = append(children, Child{Entry: e, Short: short})
	}
	return children
}

// SortChildren orders children by key. Time and size orders fall back to
// ascending name on ties.
func SortChildren(children []Child, key SortKey) {
	slices.SortStableFunc(children, comparator(key))
}

func comparator(key SortKey) func(a, b Child) int {
	byName := func(a, b Child) int {
		return strings.Compare(a.Path, b.Path)
	}
	switch key {
	case SortOldest:
		return func(a, b Child) int {
			return cmp.Or(a.ModTime.Compare(b.ModTime), byName(a, b))
		}
	case SortNewest:
		return func(a, b Child) int {
			return cmp.Or(b.ModTime.Compare(a.ModTime), byName(a, b))
		}
	case SortSmallest:
		return func(a, b Child) int {
			return cmp.Or(cmp.Compare(a.Size, b.Size), byName(a, b))
		}
	case SortLargest:
		return func(a, b Child) int {
			return cmp.Or(cmp.Compare(b.Size, a.Size), byName(a, b))
		}
	default:
		return byName
	}
}

// ResolveTerm anchors term at base. An empty term is the archive root;
// a term that does not already start with base gets it prepended.
func ResolveTerm(base, term string) string {
	if term == "" {
		return base
	}
	return pathutil.Join(base, term)
}
