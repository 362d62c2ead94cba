// Package mirror materialises an archive's directory tree on disk as a
// static mirror for web servers with server-side includes.
//
// Every directory of the mirror gets an index.html and every file a
// same-named entry, all hard links to one master page that includes the
// listing script. The tree is built next to the target directory and
// swapped in with two renames, so readers see the old or the new mirror.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"text/template"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/meigma/srcview"
	"github.com/meigma/srcview/internal/pathutil"
)

// IndexName is the file name of the directory index in the mirror.
const IndexName = "index.html"

// ErrEmptyArchive is returned when the archive yields no entries. An
// existing mirror is left in place.
var ErrEmptyArchive = errors.New("mirror: archive has no entries")

// Lister yields the entries of an archive sorted by path.
// *srcview.Archive satisfies Lister.
type Lister interface {
	Entries(ctx context.Context) []srcview.Entry
}

// Stats describes a completed build.
type Stats struct {
	Dirs     int
	Files    int
	Skipped  int
	Copied   int
	Duration time.Duration
}

// Builder builds and swaps a mirror directory.
type Builder struct {
	dir       string
	scriptURL string
	title     string
	exclude   []string
	workers   int
	logger    *zap.Logger
}

// log returns the logger, falling back to a no-op logger if nil.
func (b *Builder) log() *zap.Logger {
	if b.logger == nil {
		return zap.NewNop()
	}
	return b.logger
}

// New creates a Builder for the mirror rooted at dir.
func New(dir string, opts ...Option) (*Builder, error) {
	if dir == "" {
		return nil, errors.New("mirror: directory is empty")
	}
	b := &Builder{
		dir:       filepath.Clean(dir),
		scriptURL: srcview.DefaultScriptURL,
		title:     "Source",
		workers:   runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(b)
	}
	for _, pattern := range b.exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("mirror: invalid exclude pattern %q", pattern)
		}
	}
	return b, nil
}

// Build scans src and replaces the mirror with its current tree.
func (b *Builder) Build(ctx context.Context, src Lister) (Stats, error) {
	start := time.Now()
	entries := src.Entries(ctx)
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}
	if len(entries) == 0 {
		return Stats{}, ErrEmptyArchive
	}

	tmp := b.dir + ".tmp"
	if err := os.RemoveAll(tmp); err != nil {
		return Stats{}, fmt.Errorf("mirror: clear %s: %w", tmp, err)
	}
	stats, err := b.populate(ctx, tmp, entries)
	if err != nil {
		_ = os.RemoveAll(tmp)
		return stats, err
	}
	if err := b.swap(tmp); err != nil {
		_ = os.RemoveAll(tmp)
		return stats, err
	}
	stats.Duration = time.Since(start)
	b.log().Info("mirror built",
		zap.String("dir", b.dir),
		zap.Int("dirs", stats.Dirs),
		zap.Int("files", stats.Files),
		zap.Int("skipped", stats.Skipped),
		zap.Duration("duration", stats.Duration))
	return stats, nil
}

// plan is the set of paths to create below the mirror root.
type plan struct {
	dirs    []string
	links   []string
	skipped int
	seen    map[string]bool
}

// addDir records rel and any missing ancestors, parents first.
func (p *plan) addDir(rel string) {
	if rel == "" || p.seen[rel] {
		return
	}
	p.addDir(pathutil.Parent(rel))
	p.seen[rel] = true
	p.dirs = append(p.dirs, rel)
	p.links = append(p.links, rel+IndexName)
}

// planTree maps entries to mirror paths. The first entry is the base
// prefix and becomes the mirror root. Directories missing from the
// archive are created for the files inside them.
func (b *Builder) planTree(entries []srcview.Entry) plan {
	base := entries[0].Path
	if !strings.HasSuffix(base, "/") {
		base = ""
	}

	p := plan{seen: make(map[string]bool)}
	var excluded []string
	for _, e := range entries {
		rel, ok := strings.CutPrefix(e.Path, base)
		if !ok || rel == "" {
			continue
		}
		name := strings.TrimSuffix(rel, "/")
		if !fs.ValidPath(name) || name == "." {
			b.log().Warn("mirror: skipping unsafe path", zap.String("path", e.Path))
			p.skipped++
			continue
		}
		if underAny(rel, excluded) || b.excluded(name) {
			if e.IsDir() {
				excluded = append(excluded, rel)
			}
			p.skipped++
			continue
		}
		if e.IsDir() {
			p.addDir(rel)
			continue
		}
		p.addDir(pathutil.Parent(rel))
		p.links = append(p.links, rel)
	}
	return p
}

func (b *Builder) excluded(name string) bool {
	for _, pattern := range b.exclude {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

func underAny(rel string, dirs []string) bool {
	for _, d := range dirs {
		if strings.HasPrefix(rel, d) {
			return true
		}
	}
	return false
}

// populate writes the master page and links it throughout tmp.
func (b *Builder) populate(ctx context.Context, tmp string, entries []srcview.Entry) (Stats, error) {
	p := b.planTree(entries)
	stats := Stats{Dirs: len(p.dirs), Skipped: p.skipped}

	if err := os.MkdirAll(tmp, 0o755); err != nil {
		return stats, fmt.Errorf("mirror: %w", err)
	}
	master := filepath.Join(tmp, IndexName)
	content, err := b.masterPage()
	if err != nil {
		return stats, err
	}
	if err := os.WriteFile(master, content, 0o755); err != nil {
		return stats, fmt.Errorf("mirror: write master: %w", err)
	}
	// The executable bit enables XBitHack include processing; WriteFile
	// is subject to the umask.
	if err := os.Chmod(master, 0o755); err != nil {
		return stats, fmt.Errorf("mirror: %w", err)
	}

	for _, d := range p.dirs {
		if err := os.Mkdir(filepath.Join(tmp, filepath.FromSlash(d)), 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
			return stats, fmt.Errorf("mirror: %w", err)
		}
	}

	copied := make([]bool, len(p.links))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(b.workers)
	for i, rel := range p.links {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var err error
			copied[i], err = link(master, filepath.Join(tmp, filepath.FromSlash(rel)), content)
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return stats, err
	}
	for _, c := range copied {
		if c {
			stats.Copied++
		}
	}
	stats.Files = len(p.links) - stats.Dirs
	return stats, nil
}

// link hard-links master at dst, writing a copy when the file system
// refuses links. An existing dst already holds the master page.
func link(master, dst string, content []byte) (copied bool, err error) {
	err = os.Link(master, dst)
	switch {
	case err == nil, errors.Is(err, fs.ErrExist):
		return false, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, fmt.Errorf("mirror: %w", err)
	}
	if werr := os.WriteFile(dst, content, 0o755); werr != nil {
		return false, fmt.Errorf("mirror: %w", errors.Join(err, werr))
	}
	return true, nil
}

// swap moves tmp into place, keeping the previous mirror until the new
// one is installed.
func (b *Builder) swap(tmp string) error {
	old := b.dir + ".old"
	if err := os.RemoveAll(old); err != nil {
		return fmt.Errorf("mirror: clear %s: %w", old, err)
	}

	hadOld := true
	if err := os.Rename(b.dir, old); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("mirror: retire old tree: %w", err)
		}
		hadOld = false
	}
	if err := os.Rename(tmp, b.dir); err != nil {
		if hadOld {
			if rerr := os.Rename(old, b.dir); rerr != nil {
				err = errors.Join(err, rerr)
			}
		}
		return fmt.Errorf("mirror: install new tree: %w", err)
	}
	if hadOld {
		if err := os.RemoveAll(old); err != nil {
			b.log().Warn("mirror: remove old tree", zap.String("dir", old), zap.Error(err))
		}
	}
	return nil
}

var masterTemplate = template.Must(template.New("master").Parse(`<!--#if expr="ssi-on = ssi-on" -->
<!--#include virtual="{{.ScriptURL | html}}" -->
<!--#else -->
<html>
 <head>
  <title>Redirect In Progress</title>
  <meta http-equiv="refresh" content="2; url={{.ScriptURL | html}}">
 </head>
 <body bgcolor="white">
 <center>
 Please wait while you are redirected to the
 <a href="{{.ScriptURL | html}}">{{.Title | html}}</a>.
 </center>
 </body>
</html>
<!--#endif -->
`))

func (b *Builder) masterPage() ([]byte, error) {
	var sb strings.Builder
	err := masterTemplate.Execute(&sb, struct{ ScriptURL, Title string }{b.scriptURL, b.title})
	if err != nil {
		return nil, fmt.Errorf("mirror: render master: %w", err)
	}
	return []byte(sb.String()), nil
}
