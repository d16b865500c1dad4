package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kharven/refract/internal/cli"
)

var rootCmd = &cobra.Command{
	Use:   "refract",
	Short: "Refract is an automated subjective refraction engine",
	Long: `Refract drives phoropter-guided eye exams: a scripted protocol walks the
patient through lens comparisons while the engine validates every adjustment
against a clinical safety envelope.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("protocol", "", "Path to a protocol step table (defaults to the embedded full exam)")
	rootCmd.PersistentFlags().String("config", "", "Path to a clinical envelope config file")
	rootCmd.PersistentFlags().String("state-dir", "", "Directory for persisted sessions (defaults to .refract/sessions)")
	rootCmd.PersistentFlags().String("redis-url", "", "Redis connection URL; overrides the file store")
	rootCmd.PersistentFlags().Bool("redact-pii", false, "Mask contact details in persisted incident records")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging on stderr")
}

// engineOptions collects the persistent flag values shared by every command
// that builds an engine. The encryption key rides in an env var so it never
// shows up in shell history or process listings.
func engineOptions(cmd *cobra.Command) cli.EngineOptions {
	protocolPath, _ := cmd.Flags().GetString("protocol")
	configPath, _ := cmd.Flags().GetString("config")
	stateDir, _ := cmd.Flags().GetString("state-dir")
	redisURL, _ := cmd.Flags().GetString("redis-url")
	redactPII, _ := cmd.Flags().GetBool("redact-pii")
	debug, _ := cmd.Flags().GetBool("debug")

	return cli.EngineOptions{
		ProtocolPath:  protocolPath,
		ConfigPath:    configPath,
		StateDir:      stateDir,
		RedisURL:      redisURL,
		RedactPII:     redactPII,
		Debug:         debug,
		EncryptionKey: os.Getenv("REFRACT_ENCRYPTION_KEY"),
	}
}
