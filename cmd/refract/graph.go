package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kharven/refract/internal/presentation/graph"
	"github.com/kharven/refract/pkg/domain"
	"github.com/kharven/refract/pkg/protocol"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the protocol graph visualization",
	Long: `Outputs a Mermaid diagram (graph TD) of the exam protocol. With
--session the steps a stored exam has touched are highlighted.`,
	Run: func(cmd *cobra.Command, args []string) {
		path, _ := cmd.Flags().GetString("protocol")
		if !cmd.Flags().Changed("protocol") && len(args) > 0 {
			path = args[0]
		}

		var (
			proto *domain.Protocol
			err   error
		)
		if path == "" {
			proto, err = protocol.Default()
		} else {
			proto, err = protocol.Load(path)
		}
		if err != nil {
			fmt.Printf("Error loading protocol: %v\n", err)
			os.Exit(1)
		}

		var overlay *graph.Overlay
		if sessionID, _ := cmd.Flags().GetString("session"); sessionID != "" {
			store := getStore(cmd)
			state, err := store.Load(cmd.Context(), sessionID)
			if err != nil {
				fmt.Printf("Error loading session %q: %v\n", sessionID, err)
				os.Exit(1)
			}
			overlay = sessionOverlay(state)
		}

		// Generate and print Mermaid graph
		output := graph.GenerateMermaid(proto, overlay)
		fmt.Print(output)
	},
}

// sessionOverlay reconstructs the visited set from the adjustment history.
// Conversational steps leave no adjustments, so only refraction steps and
// the current position light up.
func sessionOverlay(state *domain.ExamState) *graph.Overlay {
	seen := make(map[domain.StepID]bool)
	overlay := &graph.Overlay{CurrentStep: state.CurrentStep}
	for _, rec := range state.Phoropter.History {
		if rec.Step == "" || seen[rec.Step] {
			continue
		}
		seen[rec.Step] = true
		overlay.VisitedSteps = append(overlay.VisitedSteps, rec.Step)
	}
	return overlay
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("session", "", "Session ID to overlay progress from")
}
