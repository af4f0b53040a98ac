package main

import (
	"github.com/spf13/cobra"

	"github.com/atomlabs/atom-console/internal/mock"
	"github.com/atomlabs/atom-console/internal/observability"
)

func newMockCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Run a stand-in assistant backend for offline use",
		RunE: func(cmd *cobra.Command, args []string) error {
			observability.InitLogger("info", true)
			return mock.NewServer(observability.GetLogger()).Start(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8000", "listen address")
	return cmd
}
