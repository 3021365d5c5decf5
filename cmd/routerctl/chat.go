package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ncecere/model_router/internal/models"
)

func promptCmd() *cobra.Command {
	var override overrides
	cmd := &cobra.Command{
		Use:   "prompt <provider> <text>",
		Short: "Run a single-shot completion",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()
			if err := override.apply(cmd.Context(), sess.Container, args[0]); err != nil {
				return err
			}

			result, err := sess.Executor.Complete(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			if result.Provider != args[0] {
				fmt.Fprintf(os.Stderr, "(served by %s)\n", result.Provider)
			}
			fmt.Println(result.Text)
			return nil
		},
	}
	override.register(cmd)
	return cmd
}

func chatCmd() *cobra.Command {
	var (
		system        string
		showReasoning bool
		mode          string
		override      overrides
	)
	cmd := &cobra.Command{
		Use:   "chat <provider> <text>",
		Short: "Stream a reply to a single user message",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()
			if err := override.apply(cmd.Context(), sess.Container, args[0]); err != nil {
				return err
			}

			messages := []models.Message{models.UserText(strings.Join(args[1:], " "))}
			metadata := &models.MessageMetadata{TaskID: uuid.NewString(), Mode: mode}

			var usage *models.StreamChunk
			for chunk, err := range sess.Executor.Stream(cmd.Context(), args[0], system, messages, metadata) {
				if err != nil {
					fmt.Println()
					return err
				}
				switch chunk.Type {
				case models.ChunkText:
					fmt.Print(chunk.Text)
				case models.ChunkReasoning:
					if showReasoning {
						fmt.Fprint(os.Stderr, chunk.Text)
					}
				case models.ChunkUsage:
					usage = &chunk
				}
			}
			fmt.Println()
			if usage != nil {
				fmt.Fprintf(os.Stderr, "tokens: in=%d out=%d cache_write=%d cache_read=%d cost=$%.6f\n",
					usage.InputTokens, usage.OutputTokens, usage.CacheWriteTokens, usage.CacheReadTokens, usage.TotalCost)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&system, "system", "s", "", "System prompt")
	cmd.Flags().BoolVar(&showReasoning, "reasoning", false, "Print reasoning chunks to stderr")
	cmd.Flags().StringVar(&mode, "mode", "", "Mode passed through request metadata")
	override.register(cmd)
	return cmd
}
