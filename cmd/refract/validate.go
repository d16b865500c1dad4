package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kharven/refract/internal/cli"
	"github.com/kharven/refract/pkg/domain"
	"github.com/kharven/refract/pkg/protocol"
)

var validateCmd = &cobra.Command{
	Use:   "validate [protocol.yaml]",
	Short: "Check a protocol file for consistency",
	Long: `Parses the protocol and reports unknown steps, dead links, unreachable
steps and missing terminal paths before a patient ever sits down.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(cmd, args); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Protocol is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("protocol")
	if len(args) > 0 {
		path = args[0]
	}

	var (
		proto *domain.Protocol
		err   error
	)
	source := path
	if path == "" {
		source = "built-in protocol"
		proto, err = protocol.Default()
	} else {
		proto, err = protocol.Load(path)
	}
	if err != nil {
		return err
	}
	fmt.Printf("  %s: %d steps, starting at %s\n", source, len(proto.Steps), proto.Start)

	// A config path is optional but when given it has to parse too.
	if configPath, _ := cmd.Flags().GetString("config"); configPath != "" {
		if _, err := cli.LoadConfig(configPath); err != nil {
			return err
		}
		fmt.Printf("  %s: configuration ok\n", configPath)
	}

	return nil
}
