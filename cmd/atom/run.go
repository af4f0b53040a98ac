package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/atomlabs/atom-console/internal/audio"
	"github.com/atomlabs/atom-console/internal/capture"
	"github.com/atomlabs/atom-console/internal/chat"
	"github.com/atomlabs/atom-console/internal/speech"
	"github.com/atomlabs/atom-console/internal/transcribe"
)

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the interactive voice and chat console",
		Long: `Starts an interactive session against the assistant backend. Type a
command and press Enter to send it; the reply streams in as it is
generated. Type /voice to dictate a command through the microphone,
and /quit to leave. Server-pushed speech plays through the configured
audio output.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			return runConsole(a)
		},
	}
}

func runConsole(a *app) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue, err := a.newSpeechQueue()
	if err != nil {
		return err
	}
	defer queue.Close()

	store := chat.NewStore()
	histStore := a.newHistoryStore()
	if persisted, err := histStore.Load(); err != nil {
		a.logger.Warn().Err(err).Msg("Could not load history")
	} else if len(persisted) > 0 {
		store.Restore(persisted)
		fmt.Printf("Restored %d messages from previous sessions.\n", len(persisted))
	}

	session := chat.NewSession(a.cfg.APIBaseURL, a.cfg.ChatStreaming, a.httpClient, store, queue, a.logger)

	events := speech.NewSubscriber(a.cfg.APIBaseURL, a.cfg.EventTransport, queue, a.httpClient, a.reconnectConfig(), a.logger)
	eventSub := events.Start(ctx)
	defer eventSub.Cancel()

	if a.cfg.MetricsEnabled {
		server := a.startMetricsServer()
		defer server.Close()
	}

	controller, err := a.newCaptureController()
	if err != nil {
		return err
	}
	transcriber := a.newTranscriber()

	render := startRenderer(session, queue, a.logger)
	defer render.stop()

	fmt.Println("A.T.O.M console ready. Type a command, /voice to speak, /quit to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit" || line == "exit":
			return nil
		case line == "/voice":
			text, ok := dictate(ctx, controller, transcriber, scanner)
			if !ok {
				continue
			}
			fmt.Printf("you (voice)> %s\n", text)
			line = text
		}

		// Send blocks until the exchange terminates; errors are already
		// rendered as the apology reply.
		_ = session.Send(ctx, line)
		render.waitExchange(ctx)

		if err := histStore.Save(store.Messages()); err != nil {
			a.logger.Warn().Err(err).Msg("Could not save history")
		}

		if ctx.Err() != nil {
			return nil
		}
	}
	return scanner.Err()
}

// dictate records from the microphone until Enter, then transcribes.
func dictate(ctx context.Context, controller *capture.Controller, transcriber *transcribe.Client, scanner *bufio.Scanner) (string, bool) {
	session, err := controller.StartCapture(ctx)
	if err != nil {
		fmt.Println(capture.UserMessage(err))
		return "", false
	}

	fmt.Println("Recording... press Enter to stop.")
	scanner.Scan()

	rec, err := controller.StopCapture(session)
	if err != nil {
		fmt.Println(capture.UserMessage(err))
		return "", false
	}

	text, err := transcriber.Transcribe(ctx, rec.DataURL)
	if err != nil {
		fmt.Println("Could not understand that. Please try again.")
		return "", false
	}
	return text, true
}

// renderer prints session events: streamed assistant text appears
// incrementally, inline audio is routed to the playback queue.
type renderer struct {
	sub    *chat.Subscription
	queue  *speech.Queue
	logger zerolog.Logger
	done   chan struct{}
}

func startRenderer(session *chat.Session, queue *speech.Queue, logger zerolog.Logger) *renderer {
	r := &renderer{
		sub:    session.Subscribe(),
		queue:  queue,
		logger: logger,
		done:   make(chan struct{}, 4),
	}
	go r.loop()
	return r
}

func (r *renderer) stop() {
	r.sub.Cancel()
}

// waitExchange blocks until the current exchange has fully rendered.
func (r *renderer) waitExchange(ctx context.Context) {
	select {
	case <-r.done:
	case <-ctx.Done():
	}
}

func (r *renderer) loop() {
	var (
		currentID string
		printed   int
	)

	for ev := range r.sub.C {
		switch ev.Type {
		case chat.EventUpdate:
			msg := ev.Message
			if msg.Role != chat.RoleAssistant {
				continue
			}
			switch {
			case msg.IsStreaming:
				if msg.ID != currentID {
					currentID = msg.ID
					printed = 0
					fmt.Print("atom> ")
				}
				if len(msg.Content) > printed {
					fmt.Print(msg.Content[printed:])
					printed = len(msg.Content)
				}
			case msg.ID == currentID:
				if len(msg.Content) > printed {
					fmt.Print(msg.Content[printed:])
				}
				fmt.Println()
				currentID = ""
				printed = 0
			default:
				fmt.Println("atom> " + msg.Content)
			}

		case chat.EventAudio:
			data, err := audio.DecodeDataURL(ev.Audio)
			if err != nil {
				r.logger.Warn().Err(err).Msg("Dropping undecodable inline audio")
				continue
			}
			r.queue.EnqueueAudio(data)

		case chat.EventDone, chat.EventFailed:
			select {
			case r.done <- struct{}{}:
			default:
			}
		}
	}
}
