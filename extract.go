package srcview

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
)

// MemberOpener streams the content of one archive member.
//
// Implementations return an error wrapping ErrNotFound when the member is
// absent or the pipeline produced nothing.
type MemberOpener interface {
	OpenMember(ctx context.Context, member string) (io.ReadCloser, error)
}

// ContentType infers the content type of a member from its suffix.
func ContentType(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".gif"):
		return "image/gif"
	case strings.HasSuffix(lower, ".jpg"):
		return "image/jpeg"
	case strings.HasSuffix(lower, ".html"), strings.HasSuffix(lower, ".htm"):
		return "text/html"
	default:
		return "text/plain"
	}
}

// tarMembers finds members by walking the tar stream of a Source.
type tarMembers struct {
	src Source
}

// OpenMember implements MemberOpener.
func (t tarMembers) OpenMember(ctx context.Context, member string) (io.ReadCloser, error) {
	rc, err := t.src.Open(ctx)
	if err != nil {
		return nil, &fs.PathError{Op: "extract", Path: member, Err: fmt.Errorf("%w: %w", ErrNotFound, err)}
	}

	tr := tar.NewReader(ctxReader{ctx: ctx, r: rc})
	for {
		hdr, err := tr.Next()
		if err != nil {
			rc.Close()
			if errors.Is(err, io.EOF) {
				err = ErrNotFound
			} else {
				err = fmt.Errorf("%w: %w", ErrNotFound, err)
			}
			return nil, &fs.PathError{Op: "extract", Path: member, Err: err}
		}
		if hdr.Name == member && hdr.Typeflag != tar.TypeDir {
			return &memberReader{Reader: tr, closer: rc}, nil
		}
	}
}

// memberReader reads one member and closes the whole stream.
type memberReader struct {
	io.Reader
	closer io.Closer
}

func (m *memberReader) Close() error {
	return m.closer.Close()
}

// ctxReader fails reads once ctx is done.
type ctxReader struct {
	ctx context.Context //nolint:containedctx // scoped to one request
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// validMember reports whether member names a file inside the archive.
func validMember(member string) bool {
	if member == "" || strings.HasSuffix(member, "/") {
		return false
	}
	return fs.ValidPath(member)
}
