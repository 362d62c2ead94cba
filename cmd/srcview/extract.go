package main

import (
	"errors"
	"io"

	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract <member>",
	Short: "Write one archive member to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openArchive(cfg)
		if err != nil {
			return err
		}
		rc, err := a.Open(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		_, err = io.Copy(cmd.OutOrStdout(), rc)
		return errors.Join(err, rc.Close())
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
