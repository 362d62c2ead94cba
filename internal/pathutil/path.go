// Package pathutil provides path manipulation for slash-separated archive paths
// where a trailing slash marks a directory.
package pathutil

import "strings"

// IsDir reports whether path names a directory, i.e. ends with a slash.
func IsDir(path string) bool {
	return strings.HasSuffix(path, "/")
}

// Parent returns the parent of path, keeping the trailing slash.
//
//	"a/b/c"  -> "a/b/"
//	"a/b/"   -> "a/"
//	"a/"     -> ""
//	"a"      -> ""
func Parent(path string) string {
	trimmed := strings.TrimSuffix(path, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[:i+1]
	}
	return ""
}

// Base returns the last element of path, keeping a directory's trailing slash.
func Base(path string) string {
	return path[len(Parent(path)):]
}

// Child extracts the part of path below prefix and reports whether it is an
// immediate child of prefix. The prefix itself ("") and deeper descendants
// (a slash anywhere but the last byte) are not immediate children.
// If path doesn't have the prefix, ok is false.
func Child(path, prefix string) (short string, ok bool) {
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	short = path[len(prefix):]
	if short == "" {
		return "", false
	}
	if i := strings.IndexByte(short, '/'); i >= 0 && i != len(short)-1 {
		return short, false
	}
	return short, true
}

// Join prefixes rel with base unless it already carries it.
func Join(base, rel string) string {
	if strings.HasPrefix(rel, base) {
		return rel
	}
	return base + rel
}
