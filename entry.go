package srcview

import (
	"cmp"
	"strings"
	"time"

	"github.com/meigma/srcview/internal/pathutil"
)

// Entry is one member recorded in the archive.
//
// A trailing slash on Path marks a directory; there is no separate kind field.
type Entry struct {
	Path    string
	ModTime time.Time
	Size    int64
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool {
	return pathutil.IsDir(e.Path)
}

// Parent returns the path of the directory containing the entry,
// including its trailing slash. Top-level entries have parent "".
func (e Entry) Parent() string {
	return ParentPath(e.Path)
}

// ParentPath strips the last component of p, keeping the separator that
// precedes it: "a/b/c" -> "a/b/", "a/b/" -> "a/", "a/" -> "".
func ParentPath(p string) string {
	return pathutil.Parent(p)
}

// compareEntries orders entries by path, then time, then size.
func compareEntries(a, b Entry) int {
	if c := strings.Compare(a.Path, b.Path); c != 0 {
		return c
	}
	if c := a.ModTime.Compare(b.ModTime); c != 0 {
		return c
	}
	return cmp.Compare(a.Size, b.Size)
}
