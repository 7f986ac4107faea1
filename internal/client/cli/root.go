package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/XavierGuerrero1989/sistema-impo/internal/client/api"
	"github.com/XavierGuerrero1989/sistema-impo/internal/client/auth"
	"github.com/XavierGuerrero1989/sistema-impo/internal/client/config"
	"github.com/XavierGuerrero1989/sistema-impo/internal/client/data"
	"github.com/XavierGuerrero1989/sistema-impo/internal/client/iocli"
	"github.com/XavierGuerrero1989/sistema-impo/internal/client/netstate"
	"github.com/XavierGuerrero1989/sistema-impo/internal/client/session"
	"github.com/XavierGuerrero1989/sistema-impo/internal/client/storage/boltdb"
	"github.com/XavierGuerrero1989/sistema-impo/internal/client/sync"
	"github.com/XavierGuerrero1989/sistema-impo/internal/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath  string
	ServerURL   string
	DBPath      string
	LogLevel    string
	Format      string
	MetricsAddr string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{FormatText, FormatJSON}

// app открывает хранилище и собирает зависимости перед выполнением команды
type app struct {
	opts  *RootOptions
	cli   *Cli
	store *boltdb.Storage
}

// NewRootCommand creates the root command of the client
func NewRootCommand(version, buildDate string) *cobra.Command {
	a := &app{opts: &RootOptions{}}

	cmd := &cobra.Command{
		Use:           "impo",
		Short:         "Seguimiento de operaciones de importación (offline-first)",
		Long:          "Client of the import operations tracker. Changes are stored locally and synchronized with the server in the background.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.opts.ConfigPath, "config", "c", "", "path to YAML config file")
	flags.StringVar(&a.opts.ServerURL, "server", "", "server URL (overrides config)")
	flags.StringVar(&a.opts.DBPath, "db", "", "path to local database (overrides config)")
	flags.StringVar(&a.opts.LogLevel, "log-level", "", "log level: DEBUG, INFO, WARN, ERROR")
	flags.StringVar(&a.opts.Format, "format", FormatText, "output format (json|text)")

	cmd.AddCommand(newVersionCommand(version, buildDate))
	cmd.AddCommand(newRegisterCommand(a))
	cmd.AddCommand(newLoginCommand(a))
	cmd.AddCommand(newLogoutCommand(a))
	cmd.AddCommand(newStatusCommand(a))
	cmd.AddCommand(newAddCommand(a))
	cmd.AddCommand(newListCommand(a))
	cmd.AddCommand(newGetCommand(a))
	cmd.AddCommand(newDeleteCommand(a))
	cmd.AddCommand(newEstadoCommand(a))
	cmd.AddCommand(newPagoCommand(a))
	cmd.AddCommand(newCancelarPagoCommand(a))
	cmd.AddCommand(newDocCommand(a))
	cmd.AddCommand(newLogisticaCommand(a))
	cmd.AddCommand(newKPIsCommand(a))
	cmd.AddCommand(newFinanzasCommand(a))
	cmd.AddCommand(newDocumentosCommand(a))
	cmd.AddCommand(newSyncCommand(a))
	cmd.AddCommand(newRunCommand(a))

	return cmd
}

// Execute runs the root command until completion or SIGINT/SIGTERM
func Execute(version, buildDate string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand(version, buildDate).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func (a *app) init(cmd *cobra.Command) error {
	if !isValidFormat(a.opts.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", a.opts.Format, ValidFormats)
	}

	cfg, err := config.Load(a.opts.ConfigPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.ServerURL = a.opts.ServerURL
	}
	if flags.Changed("db") {
		cfg.DBPath = a.opts.DBPath
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.opts.LogLevel
	}
	if flags.Lookup("metrics-addr") != nil && flags.Changed("metrics-addr") {
		cfg.MetricsAddr = a.opts.MetricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())

	store, err := boltdb.New(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	a.store = store

	apiClient := api.NewClient(cfg.ServerURL)
	authService := auth.NewService(apiClient, store, log)
	sessions := session.NewManager(store, authService, log)
	if err := sessions.Restore(ctx); err != nil {
		log.Warn("Failed to restore session", "error", err)
	}

	a.cli = New(Deps{
		IO:       iocli.NewStdio(),
		Auth:     authService,
		Sessions: sessions,
		Data:     data.NewService(store),
		Engine:   sync.NewEngine(apiClient, store, log),
		Status:   store,
		Monitor:  netstate.NewMonitor(apiClient, cfg.ProbeInterval, log),
		Config:   cfg,
		Logger:   log,
		Format:   a.opts.Format,
	})

	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
