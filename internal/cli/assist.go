package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

func newAssistCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assist",
		Short: "Start an interactive voice conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime("local")
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Println("VoiceTeller ready. Press Enter to start recording, Enter again to stop.")
			fmt.Println("Type 'quit' to exit.")

			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					return scanner.Err()
				}
				if isQuit(scanner.Text()) {
					return nil
				}
				if ctx.Err() != nil {
					return nil
				}

				if err := rt.orch.StartTurn(ctx); err != nil {
					printLastBotMessage(rt)
					continue
				}

				fmt.Print("Recording... press Enter to stop. ")
				if !scanner.Scan() {
					return scanner.Err()
				}

				result, err := rt.orch.StopTurn(ctx)
				if err != nil {
					printLastBotMessage(rt)
					continue
				}

				if result.UserText != "" {
					fmt.Printf("You:  %s\n", result.UserText)
				}
				fmt.Printf("Bot:  %s\n", result.ReplyText)
			}
		},
	}
}

func isQuit(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "quit", "exit", "q":
		return true
	}
	return false
}

// printLastBotMessage shows the apology message the orchestrator
// appended for a failed turn.
func printLastBotMessage(rt *runtime) {
	messages, _ := rt.orch.Transcript()
	if len(messages) > 0 {
		fmt.Printf("Bot:  %s\n", messages[len(messages)-1].Content)
	}
}
