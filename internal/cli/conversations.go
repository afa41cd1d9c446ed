package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/girs/internal/chat"
	apperrors "github.com/raphaelgruber/girs/internal/errors"
	"github.com/raphaelgruber/girs/internal/models"
)

var (
	conversationsAll bool
	sendConversation string
)

var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"history"},
	Short:   "List your conversations",
	Long: `List your conversations grouped by Today, Yesterday, This week and Earlier.
Empty and untitled conversations are hidden unless --all is given.

Examples:
  girs conversations
  girs conversations --all`,
	Args: cobra.NoArgs,
	RunE: runConversations,
}

var messagesCmd = &cobra.Command{
	Use:   "messages <conversation-id>",
	Short: "Show the messages of a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runMessages,
}

var sendCmd = &cobra.Command{
	Use:   "send [message]",
	Short: "Send a message and print the reply",
	Long: `Send a message to the assistant. Without --conversation a new
conversation is started. Without arguments the message is read from stdin.

Examples:
  girs send "¿Qué documentos necesito para renovar el pasaporte?"
  girs send -c 6f1e0c1a "¿Y si soy menor de edad?"
  cat question.txt | girs send`,
	RunE: runSend,
}

func init() {
	conversationsCmd.Flags().BoolVarP(&conversationsAll, "all", "a", false, "include empty and untitled conversations")
	sendCmd.Flags().StringVarP(&sendConversation, "conversation", "c", "", "continue this conversation")
}

func runConversations(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	if err := requireSession(ctx); err != nil {
		return err
	}

	svc := newChatService()
	if err := svc.LoadConversations(ctx); err != nil {
		return fmt.Errorf("list conversations: %w", err)
	}
	convs := svc.Store().State().Conversations

	if conversationsAll {
		if len(convs) == 0 {
			fmt.Println("No conversations found.")
			return nil
		}
		fmt.Printf("Conversations (%d):\n\n", len(convs))
		for _, c := range convs {
			printConversation(c)
		}
		return nil
	}

	groups := chat.GroupHistory(convs, time.Now())
	if len(groups) == 0 {
		fmt.Println("No conversations yet. Start one with 'girs send' or 'girs chat'.")
		return nil
	}

	for i, g := range groups {
		if i > 0 {
			fmt.Println()
		}
		fmt.Printf("%s:\n", g.Period)
		for _, c := range g.Conversations {
			printConversation(c)
		}
	}
	return nil
}

func printConversation(c models.Conversation) {
	fmt.Printf("- %s (%s)\n", c.Title, c.ID)
	if verbose {
		fmt.Printf("  %d messages, last %s\n", c.MessageCount, c.LastMessageAt.Local().Format("2006-01-02 15:04"))
		if c.LastMessage != "" {
			fmt.Printf("  %s\n", models.TitleFromText(c.LastMessage))
		}
	}
}

func runMessages(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	if err := requireSession(ctx); err != nil {
		return err
	}

	svc := newChatService()
	if err := svc.Open(ctx, args[0]); err != nil {
		return fmt.Errorf("get messages: %w", err)
	}

	msgs := svc.Store().State().Messages
	if len(msgs) == 0 {
		fmt.Println("No messages found.")
		return nil
	}
	for _, m := range msgs {
		printMessage(m)
	}
	return nil
}

func printMessage(m models.Message) {
	author := "You"
	if m.Role == models.RoleAssistant {
		author = cfg.AgentName
	}
	fmt.Printf("[%s] %s:\n%s\n\n", m.CreatedAt.Local().Format("15:04"), author, m.Content)
}

func runSend(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	text := strings.Join(args, " ")
	if text == "" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read message: %w", err)
		}
		text = string(b)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: message is empty", apperrors.ErrValidation)
	}

	if err := requireSession(ctx); err != nil {
		return err
	}

	svc := newChatService()
	if sendConversation != "" {
		if err := svc.Open(ctx, sendConversation); err != nil {
			return fmt.Errorf("open conversation: %w", err)
		}
	}
	if err := svc.Send(ctx, text); err != nil {
		return err
	}

	state := svc.Store().State()
	if n := len(state.Messages); n > 0 && state.Messages[n-1].Role == models.RoleAssistant {
		fmt.Println(state.Messages[n-1].Content)
	}
	if verbose || sendConversation == "" {
		fmt.Fprintf(os.Stderr, "\nConversation: %s\n", state.ActiveID)
	}
	return nil
}
