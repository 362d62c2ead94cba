// Package srcview presents a browsable directory listing and single-file
// extraction view over one compressed tar archive without unpacking it.
//
// Listings are rebuilt on every call by streaming the decompressed archive
// through a [Scanner], which finds entry headers by searching for the
// archive's base prefix (the path of its first entry) instead of walking
// fixed-size header blocks. Directory timestamps are then lifted to the
// newest timestamp among their descendants by [Propagate].
//
// # Quick Start
//
// Serve a listing of a gzip-compressed source tarball:
//
//	src, err := source.NewFile("GraphApp.3.tar.gz")
//	if err != nil {
//	    return err
//	}
//	a, err := srcview.New(src)
//	if err != nil {
//	    return err
//	}
//	listing := a.List(ctx, "src/", srcview.SortNewest)
//	err = srcview.Render(w, listing, srcview.RenderOptions{Title: "GraphApp 3 Source"})
//
// Extract one member:
//
//	rc, err := a.Open(ctx, "src/gui/menu.c")
//	if errors.Is(err, srcview.ErrNotFound) {
//	    // no such member
//	}
//
// # Limitations
//
// Header detection assumes every member path shares the base prefix and
// that the prefix never occurs in header padding. Archives without a common
// root directory, long-path extensions, and checksums are not supported.
// Directories are recognised only by a trailing slash.
package srcview
