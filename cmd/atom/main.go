// Command atom is the voice and chat console for the assistant backend:
// an interactive session with streamed replies, speech playback, microphone
// capture, and a mock backend for working offline.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "atom",
		Short:         "Voice and chat console for the assistant backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newRunCommand(),
		newChatCommand(),
		newSayCommand(),
		newTranscribeCommand(),
		newMockCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
