package srcview

import "time"

// Propagate returns a copy of entries in which every directory's ModTime is
// the newest ModTime among its descendants. Directories without descendants
// keep their own time; paths and sizes are unchanged.
//
// entries must be sorted by path, as returned by ScanEntries. Visiting them
// in reverse means every descendant is seen before its directory, so one
// pass over a map of running maxima replaces a tree walk.
func Propagate(entries []Entry) []Entry {
	latest := make(map[string]time.Time, len(entries)/4+1)
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		ts := e.ModTime
		if e.IsDir() {
			if t, ok := latest[e.Path]; ok {
				ts = t
			}
		}
		parent := e.Parent()
		if cur, ok := latest[parent]; !ok || ts.After(cur) {
			latest[parent] = ts
		}
	}

	out := make([]Entry, len(entries))
	for i, e := range entries {
		if t, ok := latest[e.Path]; ok {
			e.ModTime = t
		}
		out[i] = e
	}
	return out
}
