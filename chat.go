package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Chat with the assistant from the terminal",
	Long: `Sends one message when given as an argument, otherwise reads messages
from stdin line by line until EOF or "exit". Each answer is printed as JSON.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		sessionID, _ := cmd.Flags().GetString("session")

		cfg, err := loadConfig(envFile)
		if err != nil {
			return err
		}
		ctx := context.Background()
		assistant, closeStore, err := cfg.buildAssistant(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		out := cmd.OutOrStdout()
		turn := func(message string) error {
			res, err := assistant.RunTurn(ctx, sessionID, message)
			if err != nil {
				return err
			}
			return printJSON(out, map[string]any{
				"response":   res.Response,
				"session_id": sessionID,
				"metadata":   res.Metadata,
			})
		}

		if len(args) == 1 {
			return turn(args[0])
		}

		scanner := bufio.NewScanner(cmd.InOrStdin())
		fmt.Fprint(out, "> ")
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "exit" || line == "quit" {
				break
			}
			if line != "" {
				if err := turn(line); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
				}
			}
			fmt.Fprint(out, "> ")
		}
		return scanner.Err()
	},
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringP("session", "s", "cli", "Session id used for the conversation")
}
