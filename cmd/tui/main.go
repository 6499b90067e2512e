package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/medassist/backend/internal/config"
	"github.com/zhouzirui/medassist/backend/internal/model/persona"
	"github.com/zhouzirui/medassist/backend/internal/service/chat"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		personaID string
		logFile   string
		inline    bool
	)

	cmd := &cobra.Command{
		Use:           "medassist-tui",
		Short:         "Chat with the medical assistant from a terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(personaID, logFile, inline)
		},
	}

	cmd.Flags().StringVar(&personaID, "persona", persona.DefaultID, "persona to chat with")
	cmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file instead of discarding them")
	cmd.Flags().BoolVar(&inline, "inline", false, "render inline instead of using the alternate screen")
	return cmd
}

func run(personaID, logFile string, inline bool) error {
	_ = godotenv.Load()

	log.SetOutput(io.Discard)
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		log.SetOutput(f)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	client, err := cfg.Gemini.NewClient()
	if err != nil {
		return err
	}

	store := persona.NewMemoryStore(persona.Seed()).WithPreamble(cfg.Gemini.Preamble)
	p, ok := store.FindByID(personaID)
	if !ok {
		return fmt.Errorf("unknown persona %q", personaID)
	}

	svc := chat.NewService(store, client, cfg.Gemini.Composer())
	session, err := svc.CreateSession(context.Background(), p.ID)
	if err != nil {
		return err
	}
	ctrl, err := svc.Controller(session.ID)
	if err != nil {
		return err
	}

	events := make(chan tea.Msg, 256)
	cancel := ctrl.Watch(func(event chat.Event) {
		var msg tea.Msg
		switch event.Kind {
		case chat.EventTurn:
			msg = turnMsg{index: event.Index, turn: event.Turn}
		case chat.EventBusy:
			msg = busyMsg(event.Busy)
		default:
			return
		}
		select {
		case events <- msg:
		default:
			log.Printf("[tui] event channel full, dropping %s", event.Kind)
		}
	})
	defer cancel()

	opts := []tea.ProgramOption{tea.WithMouseCellMotion()}
	if !inline {
		opts = append(opts, tea.WithAltScreen())
	}
	_, runErr := tea.NewProgram(newModel(ctrl, p, events), opts...).Run()

	// Closing the widget ends the session; a late reply is discarded.
	if err := svc.CloseSession(context.Background(), session.ID); err != nil {
		log.Printf("[tui] close session: %v", err)
	}
	return runErr
}
