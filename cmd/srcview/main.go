// Command srcview browses and extracts the members of a compressed tar
// archive over HTTP, through CGI, or on the command line.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
