package srcview

import (
	"context"
	"io"
	"io/fs"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Source yields the decompressed bytes of the archive.
//
// Open is called once per operation; the returned reader is read
// sequentially and closed when the operation ends.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// ScanOutcome classifies how a scan ended.
type ScanOutcome string

// Scan outcomes reported to a ScanHook.
const (
	ScanOK          ScanOutcome = "ok"
	ScanUnavailable ScanOutcome = "unavailable"
	ScanTruncated   ScanOutcome = "truncated"
)

// ScanStats describes one completed scan.
type ScanStats struct {
	Outcome  ScanOutcome
	Entries  int
	Duration time.Duration
	Err      error
}

// ScanHook receives statistics after every scan.
type ScanHook func(ScanStats)

// Archive lists and extracts the members of one archive.
//
// An Archive holds configuration only: every call re-reads the Source, and
// nothing produced by one call is retained for the next. It is safe for
// concurrent use when its Source and MemberOpener are.
type Archive struct {
	src       Source
	members   MemberOpener
	blockSize int
	hook      ScanHook
	logger    *zap.Logger
}

// log returns the logger, falling back to a no-op logger if nil.
func (a *Archive) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

// New creates an Archive reading from src.
//
// By default members are extracted by walking src's tar stream; use
// WithMemberOpener to delegate to another pipeline.
func New(src Source, opts ...Option) (*Archive, error) {
	if src == nil {
		return nil, ErrNoSource
	}
	a := &Archive{
		src:       src,
		blockSize: DefaultBlockSize,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.blockSize <= 0 {
		a.blockSize = DefaultBlockSize
	}
	if a.members == nil {
		a.members = tarMembers{src: src}
	}
	return a, nil
}

// Entries scans the archive and returns every entry sorted by path, with
// directory times propagated from their descendants.
//
// An archive that cannot be opened yields no entries, and a truncated one
// yields the entries read before the cut. Neither is an error.
func (a *Archive) Entries(ctx context.Context) []Entry {
	_, entries := a.scan(ctx)
	return entries
}

// List returns the immediate children of term ordered by by.
//
// term is anchored at the archive's base prefix: "" lists the root, and a
// term not starting with the base prefix has it prepended.
func (a *Archive) List(ctx context.Context, term string, by SortKey) *Listing {
	base, entries := a.scan(ctx)
	l := &Listing{Base: base, Term: term, By: by}
	if base == "" {
		return l
	}
	l.Term = ResolveTerm(base, term)
	l.Children = Select(entries, l.Term)
	SortChildren(l.Children, by)
	return l
}

// Base returns the archive's base prefix, reading at most one block.
// It returns "" when the archive cannot be read.
func (a *Archive) Base(ctx context.Context) string {
	rc, err := a.src.Open(ctx)
	if err != nil {
		a.log().Warn("archive source unavailable", zap.Error(err))
		return ""
	}
	defer rc.Close()
	return ReadBase(ctxReader{ctx: ctx, r: rc}, a.blockSize)
}

// Open streams the content of member. The member path is anchored at the
// base prefix like a listing term.
//
// It returns an error wrapping ErrInvalidPath for directory or malformed
// paths, and ErrNotFound when the member does not exist or the archive
// cannot be read. The check happens before any content is returned.
func (a *Archive) Open(ctx context.Context, member string) (io.ReadCloser, error) {
	if member == "" || strings.HasSuffix(member, "/") {
		return nil, &fs.PathError{Op: "extract", Path: member, Err: ErrInvalidPath}
	}
	base := a.Base(ctx)
	if base == "" {
		return nil, &fs.PathError{Op: "extract", Path: member, Err: ErrNotFound}
	}
	full := ResolveTerm(base, member)
	if !validMember(memberBelow(base, full)) {
		return nil, &fs.PathError{Op: "extract", Path: full, Err: ErrInvalidPath}
	}

	rc, err := a.members.OpenMember(ctx, full)
	if err != nil {
		a.log().Debug("member not extracted", zap.String("member", full), zap.Error(err))
		return nil, err
	}
	return rc, nil
}

// memberBelow returns the part of full below a directory base, so that
// bases such as "./" are not themselves validated. A file base is its own
// only member.
func memberBelow(base, full string) string {
	if !strings.HasSuffix(base, "/") {
		return full
	}
	return strings.TrimPrefix(full, base)
}

// scan reads every entry and propagates directory times.
func (a *Archive) scan(ctx context.Context) (string, []Entry) {
	start := time.Now()
	stats := ScanStats{Outcome: ScanOK}
	defer func() {
		stats.Duration = time.Since(start)
		if a.hook != nil {
			a.hook(stats)
		}
	}()

	rc, err := a.src.Open(ctx)
	if err != nil {
		a.log().Warn("archive source unavailable", zap.Error(err))
		stats.Outcome = ScanUnavailable
		stats.Err = err
		return "", nil
	}
	defer rc.Close()

	s := NewScanner(ctxReader{ctx: ctx, r: rc}, a.blockSize)
	entries, base := scanAll(s)
	stats.Entries = len(entries)
	stats.Err = s.Err()
	if s.Truncated() || s.Err() != nil {
		stats.Outcome = ScanTruncated
		a.log().Debug("archive scan ended early",
			zap.Int("entries", len(entries)),
			zap.Bool("truncated", s.Truncated()),
			zap.Error(s.Err()))
	}
	return base, Propagate(entries)
}
