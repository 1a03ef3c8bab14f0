package main

import (
	"fmt"

	"github.com/aretw0/hmm"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of hmm",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hmm version %s\n", hmm.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
