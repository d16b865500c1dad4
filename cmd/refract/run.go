package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kharven/refract"
	"github.com/kharven/refract/internal/cli"
	"github.com/kharven/refract/internal/presentation/tui"
	"github.com/kharven/refract/pkg/runner"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an interactive eye exam",
	Long: `Starts an exam session on the terminal. Answers are free text and are
classified before they reach the engine; resumable sessions persist after
every turn.`,
	Run: func(cmd *cobra.Command, args []string) {
		headless, _ := cmd.Flags().GetBool("headless")
		jsonMode, _ := cmd.Flags().GetBool("json")
		sessionID, _ := cmd.Flags().GetString("session")
		fresh, _ := cmd.Flags().GetBool("fresh")

		opts := engineOptions(cmd)
		logger := cli.CreateLogger(opts.Debug)

		engine, err := cli.CreateEngine(opts, logger)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		if fresh && sessionID != "" {
			if err := engine.End(cmd.Context(), sessionID); err != nil {
				logger.Debug("fresh start: no previous session to remove", "session_id", sessionID, "err", err)
			}
		}

		if !jsonMode && !headless {
			tui.PrintBanner(refract.Version)
		}

		r := runner.NewRunner(engine, cli.RunnerOptions(logger, sessionID, headless, jsonMode)...)
		if err := r.Run(cmd.Context()); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("headless", false, "Run without the banner and rich rendering (strict IO)")
	runCmd.Flags().Bool("json", false, "Run in JSON mode (JSON-Lines input/output)")
	runCmd.Flags().StringP("session", "s", "", "Session ID to create or resume (empty generates one)")
	runCmd.Flags().Bool("fresh", false, "Discard any stored session with this ID before starting")

	// 'refract' with no subcommand runs an exam.
	rootCmd.Run = runCmd.Run
	rootCmd.Flags().AddFlagSet(runCmd.Flags())
}
