package main

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	srchttp "github.com/meigma/srcview/http"
	"github.com/meigma/srcview/internal/config"
	"github.com/meigma/srcview/internal/testutil"
	"github.com/meigma/srcview/source"
)

func projectFile(t *testing.T) string {
	t.Helper()
	return testutil.WriteFile(t, "proj.tar.gz", testutil.Gzip(t, testutil.BuildTar(t, testutil.Project())))
}

func TestNewSource(t *testing.T) {
	t.Parallel()

	local := config.Default()
	local.ArchivePath = "/srv/src.tar.zst"
	src, err := newSource(local)
	require.NoError(t, err)
	file, ok := src.(*source.File)
	require.True(t, ok)
	assert.Equal(t, source.CompressionZstd, file.Compression())

	piped := config.Default()
	piped.ArchivePath = "/srv/src.tar.bz2"
	piped.Decompressor = "bzip2 -dc"
	src, err = newSource(piped)
	require.NoError(t, err)
	assert.IsType(t, &source.Command{}, src)

	remote := config.Default()
	remote.ArchivePath = "https://example.com/src.tar.gz"
	src, err = newSource(remote)
	require.NoError(t, err)
	assert.IsType(t, &srchttp.Source{}, src)

	bad := config.Default()
	bad.ArchivePath = "/srv/src.tar.gz"
	bad.Compression = "lzma"
	_, err = newSource(bad)
	require.Error(t, err)
}

func TestOpenArchive(t *testing.T) {
	t.Parallel()

	c := config.Default()
	c.ArchivePath = projectFile(t)
	a, err := openArchive(c)
	require.NoError(t, err)

	assert.Equal(t, "proj/", a.Base(context.Background()))
	rc, err := a.Open(context.Background(), "src/b.h")
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "y", string(body))
}

func TestOpenArchiveRemoteTarCommand(t *testing.T) {
	t.Parallel()

	c := config.Default()
	c.ArchivePath = "https://example.com/src.tar.gz"
	c.TarCommand = "tar -xOf"
	_, err := openArchive(c)
	require.Error(t, err)
}

func TestRenderOptions(t *testing.T) {
	t.Parallel()

	c := config.Default()
	c.Timezone = "UTC"
	c.Title = "Kernel"
	opts, err := renderOptions(c)
	require.NoError(t, err)
	assert.Equal(t, "Kernel", opts.Title)
	assert.Equal(t, "UTC", opts.Location.String())
	assert.False(t, opts.RelativeLinks)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// The commands share rootCmd, so these run sequentially.
func TestCommands(t *testing.T) {
	path := projectFile(t)

	t.Run("extract", func(t *testing.T) {
		out, err := execute(t, "--archive", path, "extract", "Makefile")
		require.NoError(t, err)
		assert.Equal(t, "all", out)
	})

	t.Run("extract missing", func(t *testing.T) {
		_, err := execute(t, "--archive", path, "extract", "src/missing.c")
		require.Error(t, err)
	})

	t.Run("list", func(t *testing.T) {
		out, err := execute(t, "--archive", path, "list", "src/", "--by", "newest")
		require.NoError(t, err)
		assert.Contains(t, out, "<h1>proj/src/</h1>")
		assert.Less(t, bytes.Index([]byte(out), []byte(">a.c<")), bytes.Index([]byte(out), []byte(">b.h<")))
	})

	t.Run("list unknown key", func(t *testing.T) {
		_, err := execute(t, "--archive", path, "list", "--by", "sideways")
		require.Error(t, err)
	})

	t.Run("scan", func(t *testing.T) {
		out, err := execute(t, "--archive", path, "scan", "--quiet")
		require.NoError(t, err)
		assert.Equal(t, "3 directories, 4 files, 2.0 KiB, newest 2001-09-09T01:47:30Z\n", out)
	})

	t.Run("missing archive", func(t *testing.T) {
		_, err := execute(t, "--archive", "", "scan", "--quiet")
		require.Error(t, err)
	})
}
