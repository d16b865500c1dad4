package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kharven/refract"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the refract release version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("refract %s\n", strings.TrimSpace(refract.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
