package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/atomlabs/atom-console/internal/chat"
)

func newChatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <command...>",
		Short: "Send a single command and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			store := chat.NewStore()
			session := chat.NewSession(a.cfg.APIBaseURL, a.cfg.ChatStreaming, a.httpClient, store, nil, a.logger)

			command := strings.Join(args, " ")
			if err := session.Send(context.Background(), command); err != nil {
				return err
			}

			messages := store.Messages()
			for i := len(messages) - 1; i >= 0; i-- {
				if messages[i].Role == chat.RoleAssistant {
					fmt.Println(messages[i].Content)
					break
				}
			}
			return nil
		},
	}
}
