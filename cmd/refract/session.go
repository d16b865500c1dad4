package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kharven/refract/internal/cli"
	"github.com/kharven/refract/pkg/ports"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage persistent exam sessions",
	Long:  `List, inspect, and remove exam sessions kept in the state store.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all stored sessions",
	Run: func(cmd *cobra.Command, args []string) {
		store := getStore(cmd)
		sessions, err := store.List(cmd.Context())
		if err != nil {
			fmt.Printf("Error reading session list: %v\n", err)
			os.Exit(1)
		}

		if len(sessions) == 0 {
			fmt.Println("No stored sessions.")
			return
		}
		for _, s := range sessions {
			fmt.Println(s)
		}
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Print a stored session as JSON",
	Long: `Prints the stored exam state as JSON. Encrypted sessions need
REFRACT_ENCRYPTION_KEY set to the key they were sealed with; without it
only the envelope (id, status, timestamps) is readable.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sessionID := args[0]
		store := getStore(cmd)

		state, err := store.Load(cmd.Context(), sessionID)
		if err != nil {
			fmt.Printf("Error loading session %q: %v\n", sessionID, err)
			os.Exit(1)
		}

		data, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			fmt.Printf("Error rendering state: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
	},
}

var sessionRmAll bool

var sessionRmCmd = &cobra.Command{
	Use:   "rm [session-id...]",
	Short: "Remove sessions by ID, or every session with --all",
	Args: func(cmd *cobra.Command, args []string) error {
		if sessionRmAll && len(args) > 0 {
			return fmt.Errorf("--all does not take session IDs")
		}
		if !sessionRmAll && len(args) == 0 {
			return fmt.Errorf("requires session IDs or --all")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		store := getStore(cmd)

		ids := args
		if sessionRmAll {
			var err error
			ids, err = store.List(cmd.Context())
			if err != nil {
				fmt.Printf("Error reading session list: %v\n", err)
				os.Exit(1)
			}
		}
		if len(ids) == 0 {
			fmt.Println("No stored sessions.")
			return
		}

		failed := false
		for _, sessionID := range ids {
			if err := store.Delete(cmd.Context(), sessionID); err != nil {
				fmt.Printf("Error deleting %q: %v\n", sessionID, err)
				failed = true
				continue
			}
			fmt.Printf("Removed %s\n", sessionID)
		}
		if failed {
			os.Exit(1)
		}
	},
}

func init() {
	sessionRmCmd.Flags().BoolVar(&sessionRmAll, "all", false, "remove every stored session")

	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)
}

func getStore(cmd *cobra.Command) ports.StateStore {
	store, _, err := cli.CreateStore(engineOptions(cmd))
	if err != nil {
		fmt.Printf("Error opening state store: %v\n", err)
		os.Exit(1)
	}
	return store
}
