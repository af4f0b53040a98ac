package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/atomlabs/atom-console/internal/capture"
)

func newTranscribeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe [file]",
		Short: "Transcribe an audio file, or record from the microphone",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			transcriber := a.newTranscriber()
			ctx := context.Background()

			var dataURL string
			if len(args) == 1 {
				blob, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				dataURL = capture.EncodeDataURL(blob, "audio/wav")
			} else {
				controller, err := a.newCaptureController()
				if err != nil {
					return err
				}

				session, err := controller.StartCapture(ctx)
				if err != nil {
					return fmt.Errorf("%s", capture.UserMessage(err))
				}

				fmt.Fprintln(os.Stderr, "Recording... press Enter to stop.")
				bufio.NewScanner(os.Stdin).Scan()

				rec, err := controller.StopCapture(session)
				if err != nil {
					return fmt.Errorf("%s", capture.UserMessage(err))
				}
				dataURL = rec.DataURL
			}

			text, err := transcriber.Transcribe(ctx, dataURL)
			if err != nil {
				return err
			}
			fmt.Println(text)
			return nil
		},
	}
}
