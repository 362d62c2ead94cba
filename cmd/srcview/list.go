package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meigma/srcview"
)

var listCmd = &cobra.Command{
	Use:   "list [term]",
	Short: "Print the HTML listing of a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		by, _ := cmd.Flags().GetString("by")
		key, ok := srcview.ParseSortKey(by)
		if !ok {
			return fmt.Errorf("unknown sort key %q", by)
		}
		var term string
		if len(args) == 1 {
			term = args[0]
		}

		a, err := openArchive(cfg)
		if err != nil {
			return err
		}
		opts, err := renderOptions(cfg)
		if err != nil {
			return err
		}
		return srcview.Render(cmd.OutOrStdout(), a.List(cmd.Context(), term, key), opts)
	},
}

func init() {
	listCmd.Flags().String("by", "name", "Sort key: name, newest, oldest, largest or smallest")

	rootCmd.AddCommand(listCmd)
}
