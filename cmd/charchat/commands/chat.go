package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"charchat-client/internal/models"
)

func (a *app) chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to characters",
	}
	cmd.AddCommand(a.chatListCmd(), a.chatStartCmd(), a.chatSendCmd(), a.chatHistoryCmd(), a.chatDeleteCmd())
	return cmd
}

func (a *app) chatListCmd() *cobra.Command {
	var params models.ListParams
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your chats",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireAuth(ctx); err != nil {
				return err
			}
			page, err := a.svcs.Chats.List(ctx, params)
			if err != nil {
				return err
			}
			return a.render(page, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tCHARACTER\tMESSAGES\tUPDATED\tLAST MESSAGE")
				for _, c := range page.Items {
					fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", c.ID, c.CharacterName, c.MessagesCount,
						shortTime(c.UpdatedAt), truncate(c.LastMessage, 40))
				}
				pageFooter(w, page.Page, page.Total, page.HasMore)
			})
		},
	}
	listFlags(cmd, &params)
	return cmd
}

func (a *app) chatStartCmd() *cobra.Command {
	var req models.StartChatRequest
	cmd := &cobra.Command{
		Use:   "start <characterId>",
		Short: "Start a new chat with a character",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireAuth(ctx); err != nil {
				return err
			}
			req.CharacterID = args[0]
			chat, err := a.svcs.Chats.Start(ctx, req)
			if err != nil {
				return err
			}
			a.printf("Chat %s started with %s\n", chat.ID, chat.CharacterName)
			if chat.LastMessage != "" {
				a.printf("%s: %s\n", chat.CharacterName, chat.LastMessage)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&req.PersonaID, "persona", "", "persona preset id")
	return cmd
}

func (a *app) chatSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <chatId> <message...>",
		Short: "Send a message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			content := strings.Join(args[1:], " ")
			// Пустое сообщение отклоняется сервисом до обращения к сети
			if strings.TrimSpace(content) != "" {
				if err := a.requireAuth(ctx); err != nil {
					return err
				}
			}
			turn, err := a.svcs.Chats.Send(ctx, args[0], content)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return a.render(turn, nil)
			}
			a.printf("%s\n", turn.Reply.Content)
			a.printf("(-%d tokens, %d left)\n", turn.TokensUsed, turn.TokenBalance)
			return nil
		},
	}
}

func (a *app) chatHistoryCmd() *cobra.Command {
	var params models.ListParams
	cmd := &cobra.Command{
		Use:   "history <chatId>",
		Short: "Show chat messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireAuth(ctx); err != nil {
				return err
			}
			page, err := a.svcs.Chats.Messages(ctx, args[0], params)
			if err != nil {
				return err
			}
			return a.render(page, func(w io.Writer) {
				for _, m := range page.Items {
					who := "you"
					if m.Sender == models.SenderCharacter {
						who = "them"
					}
					fmt.Fprintf(w, "[%s]\t%s:\t%s\n", shortTime(m.CreatedAt), who, m.Content)
				}
				pageFooter(w, page.Page, page.Total, page.HasMore)
			})
		},
	}
	cmd.Flags().IntVar(&params.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&params.Limit, "limit", 50, "messages per page")
	return cmd
}

func (a *app) chatDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <chatId>",
		Short: "Delete a chat and its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireAuth(ctx); err != nil {
				return err
			}
			if err := a.svcs.Chats.Delete(ctx, args[0]); err != nil {
				return err
			}
			a.printf("Deleted\n")
			return nil
		},
	}
}
