package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/diogo/aichat/internal/api"
	"github.com/diogo/aichat/internal/chat"
	"github.com/diogo/aichat/internal/config"
	"github.com/diogo/aichat/internal/logging"
	"github.com/diogo/aichat/internal/tui"
)

// Backend is the chat backend as used by the commands
type Backend interface {
	chat.Completer
	Health(ctx context.Context) (string, error)
}

// Dependencies holds the external dependencies for the commands.
// This allows for dependency injection and easier testing.
type Dependencies struct {
	// NewClient builds the backend client for the effective config
	NewClient func(cfg config.Config, logger *zap.Logger) (Backend, error)

	// Store holds the persisted settings. Nil means the settings file in the
	// config directory.
	Store config.KVStore

	// RunTUI runs the interactive chat
	RunTUI func(ctx context.Context, session *chat.Session, updates *tui.Notifier, opts tui.Options) error

	// ReadSecret reads a line without echoing it
	ReadSecret func() (string, error)

	Clipboard func(string) error

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewDependencies creates a new Dependencies struct with default implementations.
func NewDependencies() *Dependencies {
	return &Dependencies{
		NewClient:  newAPIClient,
		RunTUI:     tui.Run,
		ReadSecret: readSecret,
		Clipboard:  clipboard.WriteAll,
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
	}
}

func newAPIClient(cfg config.Config, logger *zap.Logger) (Backend, error) {
	return api.NewClient(
		api.WithBaseURL(cfg.BaseURL),
		api.WithTimeout(cfg.Timeout()),
		api.WithLogger(logger),
	)
}

func readSecret() (string, error) {
	data, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// app is the state shared by a single command run
type app struct {
	cfg      config.Config
	store    config.KVStore
	settings config.Settings
	logger   *zap.Logger
}

// load reads config and settings and applies the global flags
func (d *Dependencies) load(cmd *cobra.Command) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(d.Stderr, "Warning: %v, using defaults\n", err)
	}
	if f := cmd.Flag("base-url"); f != nil && f.Changed {
		cfg.BaseURL = f.Value.String()
	}

	logger := zap.NewNop()
	if cfg.Verbose {
		path, err := config.GetLogPath(cfg)
		if err == nil {
			logger, err = logging.New(true, path)
		}
		if err != nil {
			fmt.Fprintf(d.Stderr, "Warning: logging disabled: %v\n", err)
			logger = zap.NewNop()
		}
	}

	store := d.Store
	if store == nil {
		fs, err := config.DefaultFileStore()
		if err != nil {
			return nil, err
		}
		store = fs
	}

	settings, err := config.LoadSettings(store)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	return &app{
		cfg:      cfg,
		store:    store,
		settings: settings.WithFallbackKey(cfg.APIKey),
		logger:   logger,
	}, nil
}

// client creates the backend client for a
func (d *Dependencies) client(a *app) (Backend, error) {
	client, err := d.NewClient(a.cfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

// session creates a chat session over client
func (a *app) session(client Backend, opts ...chat.Option) *chat.Session {
	opts = append([]chat.Option{
		chat.WithLogger(a.logger),
		chat.WithRetrievalK(a.cfg.RetrievalK),
	}, opts...)
	return chat.New(client, a.settings, opts...)
}

func (a *app) close() {
	_ = a.logger.Sync()
}
