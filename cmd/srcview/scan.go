package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/meigma/srcview"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Print every archive entry with its propagated time",
	RunE: func(cmd *cobra.Command, _ []string) error {
		quiet, _ := cmd.Flags().GetBool("quiet")
		a, err := openArchive(cfg)
		if err != nil {
			return err
		}
		loc, err := cfg.Location()
		if err != nil {
			return err
		}
		entries := a.Entries(cmd.Context())
		if !quiet {
			writeEntries(cmd.OutOrStdout(), entries, loc)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), summarize(entries))
		return err
	},
}

func init() {
	scanCmd.Flags().BoolP("quiet", "q", false, "Print only the summary")

	rootCmd.AddCommand(scanCmd)
}

type scanSummary struct {
	Dirs   int
	Files  int
	Bytes  int64
	Newest time.Time
}

func summarize(entries []srcview.Entry) scanSummary {
	var s scanSummary
	for _, e := range entries {
		if e.IsDir() {
			s.Dirs++
		} else {
			s.Files++
			s.Bytes += e.Size
		}
		if e.ModTime.After(s.Newest) {
			s.Newest = e.ModTime
		}
	}
	return s
}

func (s scanSummary) String() string {
	if s.Dirs+s.Files == 0 {
		return "no entries"
	}
	return fmt.Sprintf("%s directories, %s files, %s, newest %s",
		humanize.Comma(int64(s.Dirs)),
		humanize.Comma(int64(s.Files)),
		humanize.IBytes(uint64(s.Bytes)),
		s.Newest.UTC().Format(time.RFC3339))
}

func writeEntries(w io.Writer, entries []srcview.Entry, loc *time.Location) {
	for _, e := range entries {
		fmt.Fprintf(w, "%s %10s %s\n", e.ModTime.In(loc).Format(time.ANSIC), humanize.IBytes(uint64(e.Size)), e.Path)
	}
}
