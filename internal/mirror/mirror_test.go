package mirror

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/meigma/srcview"
	"github.com/meigma/srcview/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type staticLister []srcview.Entry

func (s staticLister) Entries(context.Context) []srcview.Entry { return s }

func entries(paths ...string) staticLister {
	out := make(staticLister, len(paths))
	for i, p := range paths {
		out[i] = srcview.Entry{Path: p}
	}
	return out
}

// tree lists every path below root, directories with a trailing slash.
func tree(t *testing.T, root string) []string {
	t.Helper()
	var out []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			rel += "/"
		}
		out = append(out, rel)
		return nil
	})
	require.NoError(t, err)
	sort.Strings(out)
	return out
}

func stat(t *testing.T, path string) os.FileInfo {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	return info
}

func TestBuildFromArchive(t *testing.T) {
	t.Parallel()

	a, err := srcview.New(testutil.NewMemSource(testutil.BuildTar(t, testutil.Project())))
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "pub")
	b, err := New(dir, WithScriptURL("/cgi-bin/srcssi.cgi"), WithTitle("Project source"), WithWorkers(2))
	require.NoError(t, err)

	stats, err := b.Build(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Dirs)
	assert.Equal(t, 4, stats.Files)
	assert.Zero(t, stats.Skipped)

	assert.Equal(t, []string{
		"Makefile",
		"docs/",
		"docs/index.html",
		"docs/logo.png",
		"index.html",
		"src/",
		"src/a.c",
		"src/b.h",
		"src/index.html",
	}, tree(t, dir))

	master, err := os.ReadFile(filepath.Join(dir, IndexName))
	require.NoError(t, err)
	assert.Contains(t, string(master), `<!--#include virtual="/cgi-bin/srcssi.cgi" -->`)
	assert.Contains(t, string(master), `>Project source</a>`)

	info, err := os.Stat(filepath.Join(dir, IndexName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	// Every page is a link to the master.
	if stats.Copied == 0 {
		master := stat(t, filepath.Join(dir, IndexName))
		for _, rel := range []string{"Makefile", "src/a.c", "src/index.html", "docs/logo.png"} {
			assert.True(t, os.SameFile(master, stat(t, filepath.Join(dir, rel))), rel)
		}
	}

	_, err = os.Stat(dir + ".tmp")
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(dir + ".old")
	assert.True(t, os.IsNotExist(err))
}

func TestBuildReplacesMirror(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "pub")
	b, err := New(dir)
	require.NoError(t, err)

	_, err = b.Build(context.Background(), entries("p/", "p/old.c", "p/gone/"))
	require.NoError(t, err)
	assert.Contains(t, tree(t, dir), "old.c")

	_, err = b.Build(context.Background(), entries("p/", "p/new.c"))
	require.NoError(t, err)
	assert.Equal(t, []string{"index.html", "new.c"}, tree(t, dir))

	_, err = os.Stat(dir + ".old")
	assert.True(t, os.IsNotExist(err))
}

func TestBuildEmptyArchiveKeepsMirror(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "pub")
	b, err := New(dir)
	require.NoError(t, err)

	_, err = b.Build(context.Background(), entries("p/", "p/keep.c"))
	require.NoError(t, err)

	_, err = b.Build(context.Background(), staticLister(nil))
	require.ErrorIs(t, err, ErrEmptyArchive)
	assert.Equal(t, []string{"index.html", "keep.c"}, tree(t, dir))
}

func TestBuildExclude(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "pub")
	b, err := New(dir, WithExclude("**/CVS", "**/*.o"))
	require.NoError(t, err)

	stats, err := b.Build(context.Background(), entries(
		"p/",
		"p/CVS/",
		"p/CVS/Root",
		"p/main.c",
		"p/main.o",
		"p/lib/",
		"p/lib/CVS/",
		"p/lib/CVS/Entries",
		"p/lib/util.o",
	))
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Skipped)
	assert.Equal(t, []string{"index.html", "lib/", "lib/index.html", "main.c"}, tree(t, dir))
}

func TestBuildUnsafeAndImplicitPaths(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "pub")
	b, err := New(dir)
	require.NoError(t, err)

	stats, err := b.Build(context.Background(), entries(
		"p/",
		"p/../escape.c",
		"p/a//b.c",
		"p/deep/er/file.c",
	))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, []string{
		"deep/",
		"deep/er/",
		"deep/er/file.c",
		"deep/er/index.html",
		"deep/index.html",
		"index.html",
	}, tree(t, dir))

	_, err = os.Stat(filepath.Join(filepath.Dir(dir), "escape.c"))
	assert.True(t, os.IsNotExist(err))
}

func TestBuildArchiveIndexCollision(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "pub")
	b, err := New(dir)
	require.NoError(t, err)

	_, err = b.Build(context.Background(), entries("p/", "p/doc/", "p/doc/index.html"))
	require.NoError(t, err)
	assert.Equal(t, []string{"doc/", "doc/index.html", "index.html"}, tree(t, dir))
}

func TestBuildCanceled(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "pub")
	b, err := New(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.Build(ctx, entries("p/", "p/a.c"))
	require.ErrorIs(t, err, context.Canceled)
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestNewErrors(t *testing.T) {
	t.Parallel()

	_, err := New("")
	require.Error(t, err)

	_, err = New(t.TempDir(), WithExclude("[unclosed"))
	require.Error(t, err)
}

func TestMasterPageEscapes(t *testing.T) {
	t.Parallel()

	b, err := New(t.TempDir(), WithScriptURL(`/cgi?a="b"`), WithTitle("<Source>"))
	require.NoError(t, err)
	page, err := b.masterPage()
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(page), `a="b"`))
	assert.Contains(t, string(page), "&lt;Source&gt;")
}
