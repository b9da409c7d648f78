// Command studyclub-cli manages chat sessions and chats with the study
// assistant from a terminal.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:           "studyclub-cli",
		Short:         "StudyClub24 chat session client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&server, "server", envOr("STUDYCLUB_SERVER", "http://localhost:8080"), "chat service base URL")

	cmd.AddCommand(sessionsCmd(&server))
	cmd.AddCommand(chatCmd(&server))
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
