package main

import (
	"errors"

	"github.com/meigma/srcview"
	srchttp "github.com/meigma/srcview/http"
	"github.com/meigma/srcview/internal/config"
	"github.com/meigma/srcview/internal/metrics"
	"github.com/meigma/srcview/source"
)

// openArchive wires the configured byte source, member extractor and scan
// metrics into an Archive.
func openArchive(c *config.Config) (*srcview.Archive, error) {
	src, err := newSource(c)
	if err != nil {
		return nil, err
	}
	opts := []srcview.Option{
		srcview.WithBlockSize(c.BlockSize),
		srcview.WithScanHook(metrics.RecordScan),
		srcview.WithLogger(logger),
	}
	if c.TarCommand != "" {
		if c.IsRemote() {
			return nil, errors.New("tar command needs a local archive")
		}
		tc, err := source.NewTarCommand(c.ArchivePath, c.TarCommand)
		if err != nil {
			return nil, err
		}
		opts = append(opts, srcview.WithMemberOpener(tc))
	}
	return srcview.New(src, opts...)
}

func newSource(c *config.Config) (srcview.Source, error) {
	comp, err := source.ParseCompression(c.Compression)
	if err != nil {
		return nil, err
	}
	switch {
	case c.IsRemote():
		return srchttp.NewSource(c.ArchivePath, srchttp.WithCompression(comp))
	case c.Decompressor != "":
		return source.NewCommand(c.ArchivePath, c.Decompressor)
	default:
		return source.NewFile(c.ArchivePath, source.WithCompression(comp))
	}
}

func renderOptions(c *config.Config) (srcview.RenderOptions, error) {
	loc, err := c.Location()
	if err != nil {
		return srcview.RenderOptions{}, err
	}
	return srcview.RenderOptions{
		Title:     c.Title,
		ScriptURL: c.ScriptURL,
		IconURL:   c.IconURL,
		Location:  loc,
	}, nil
}
