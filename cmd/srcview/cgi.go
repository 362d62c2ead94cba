package main

import (
	"net/http/cgi"

	"github.com/spf13/cobra"
)

var cgiCmd = &cobra.Command{
	Use:   "cgi",
	Short: "Answer one CGI request",
	Long:  "Answer the request described by the CGI environment, for use as the listing script behind a web server.",
	RunE: func(*cobra.Command, []string) error {
		handler, err := newHandler(cfg)
		if err != nil {
			return err
		}
		return cgi.Serve(handler)
	},
}

func init() {
	rootCmd.AddCommand(cgiCmd)
}
