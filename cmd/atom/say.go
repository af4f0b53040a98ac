package main

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/atomlabs/atom-console/internal/audio"
	"github.com/atomlabs/atom-console/internal/resilience"
	"github.com/atomlabs/atom-console/internal/speech"
)

func newSayCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "say <text...>",
		Short: "Synthesize text and play it through the audio output",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			player, err := audio.NewExecPlayer(a.cfg.PlayerArgs())
			if err != nil {
				return err
			}

			breaker := resilience.NewCircuitBreaker(
				"tts",
				a.cfg.SynthesisMaxFailures,
				time.Duration(a.cfg.SynthesisResetTimeout)*time.Second,
			)
			synth := speech.NewClient(a.cfg.APIBaseURL, a.httpClient, breaker, a.logger)

			ctx := context.Background()
			data, err := synth.Synthesize(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return player.Play(ctx, data)
		},
	}
}
