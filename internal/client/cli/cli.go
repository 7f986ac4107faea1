// Package cli реализует команды клиента поверх локального хранилища
// и движка синхронизации.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/XavierGuerrero1989/sistema-impo/internal/client/auth"
	"github.com/XavierGuerrero1989/sistema-impo/internal/client/config"
	"github.com/XavierGuerrero1989/sistema-impo/internal/client/data"
	"github.com/XavierGuerrero1989/sistema-impo/internal/client/iocli"
	"github.com/XavierGuerrero1989/sistema-impo/internal/client/netstate"
	"github.com/XavierGuerrero1989/sistema-impo/internal/client/session"
	"github.com/XavierGuerrero1989/sistema-impo/internal/client/storage"
	"github.com/XavierGuerrero1989/sistema-impo/internal/client/sync"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

// AuthService is the part of auth.Service used by the commands
type AuthService interface {
	Register(ctx context.Context, username, password string) (*auth.RegisterResult, error)
	Login(ctx context.Context, username, password string) (*storage.AuthData, error)
	Logout(ctx context.Context) error
	Current(ctx context.Context) (*storage.AuthData, error)
}

// StatusStore provides the sync bookkeeping shown by status
type StatusStore interface {
	CountJobs(ctx context.Context) (int, error)
	GetLastSync(ctx context.Context) (storage.SyncInfo, error)
}

// Deps зависимости команд
type Deps struct {
	IO       iocli.IO
	Auth     AuthService
	Sessions *session.Manager
	Data     *data.Service
	Engine   *sync.Engine
	Status   StatusStore
	Monitor  *netstate.Monitor
	Config   *config.Config
	Logger   *slog.Logger
	Format   string
}

// Cli выполняет команды клиента
type Cli struct {
	io       iocli.IO
	auth     AuthService
	sessions *session.Manager
	data     *data.Service
	engine   *sync.Engine
	status   StatusStore
	monitor  *netstate.Monitor
	cfg      *config.Config
	logger   *slog.Logger
	now      func() time.Time
	format   string
}

// New creates a Cli
func New(d Deps) *Cli {
	c := &Cli{
		io:       d.IO,
		auth:     d.Auth,
		sessions: d.Sessions,
		data:     d.Data,
		engine:   d.Engine,
		status:   d.Status,
		monitor:  d.Monitor,
		cfg:      d.Config,
		logger:   d.Logger,
		now:      time.Now,
		format:   d.Format,
	}
	if c.io == nil {
		c.io = iocli.NewStdio()
	}
	if c.cfg == nil {
		c.cfg = config.Default()
	}
	if c.format == "" {
		c.format = FormatText
	}
	return c
}

// requireActor returns the current actor or a user-facing error
func (c *Cli) requireActor() (*session.Actor, error) {
	if c.sessions == nil {
		return nil, auth.ErrNotLoggedIn
	}
	actor := c.sessions.Current()
	if actor == nil {
		return nil, fmt.Errorf("%w. Run 'impo login' first", auth.ErrNotLoggedIn)
	}
	return actor, nil
}

func (c *Cli) printJSON(v any) error {
	enc := json.NewEncoder(c.io)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

// ask запрашивает значение, если оно не передано флагом
func (c *Cli) ask(dst *string, prompt string) error {
	if strings.TrimSpace(*dst) != "" {
		return nil
	}
	v, err := c.io.ReadInput(prompt)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	*dst = v
	return nil
}

// credentials источники логина и пароля
type credentials struct {
	Username     string
	Password     string
	PasswordFile string
}

// readPassword reads the password from various sources with priority:
// 1. Environment variable IMPO_PASSWORD
// 2. File given by --password-file
// 3. Command-line parameter --password
// 4. Interactive prompt (fallback)
func (c *Cli) readPassword(creds credentials, prompt string) (string, error) {
	if envPassword := os.Getenv("IMPO_PASSWORD"); envPassword != "" {
		return envPassword, nil
	}

	if creds.PasswordFile != "" {
		content, err := os.ReadFile(creds.PasswordFile)
		if err != nil {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		password := strings.TrimSpace(string(content))
		if password == "" {
			return "", errors.New("password file is empty")
		}
		return password, nil
	}

	if creds.Password != "" {
		return creds.Password, nil
	}

	password, err := c.io.ReadPassword(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	return password, nil
}

// passwordPrompted reports whether readPassword will fall back to the prompt
func passwordPrompted(creds credentials) bool {
	return os.Getenv("IMPO_PASSWORD") == "" && creds.PasswordFile == "" && creds.Password == ""
}
