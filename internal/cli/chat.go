package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var chatConversation string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the interactive chat",
	Long: `Open a full-screen chat with the assistant.

Keys:
  enter    send the message
  ctrl+b   show or hide the conversation history
  tab      move between history and input
  ctrl+n   start a new conversation
  ctrl+c   quit

Examples:
  girs chat
  girs chat -c 6f1e0c1a`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatConversation, "conversation", "c", "", "open this conversation")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	if err := requireSession(ctx); err != nil {
		return err
	}

	svc := newChatService()
	if chatConversation != "" {
		if err := svc.Open(ctx, chatConversation); err != nil {
			return err
		}
	}

	tuiRunning.Store(true)
	defer tuiRunning.Store(false)

	return runChatUI(svc, chatOptions{
		brand: branding{
			project:  cfg.ProjectName,
			agent:    cfg.AgentName,
			greeting: cfg.AgentDescription,
		},
		timeout: cfg.RequestTimeout,
	})
}
