package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/XavierGuerrero1989/sistema-impo/internal/client/auth"
	"github.com/XavierGuerrero1989/sistema-impo/internal/client/session"
)

func (c *Cli) runRegister(ctx context.Context, creds credentials) error {
	c.io.Println("=== Registration ===")
	c.io.Println()

	if err := c.ask(&creds.Username, "Username: "); err != nil {
		return err
	}

	prompted := passwordPrompted(creds)
	password, err := c.readPassword(creds, "Password: ")
	if err != nil {
		return err
	}
	if prompted {
		confirm, err := c.io.ReadPassword("Confirm password: ")
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		if confirm != password {
			return errors.New("passwords do not match")
		}
	}

	result, err := c.auth.Register(ctx, creds.Username, password)
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("✓ Registration successful!")
	c.io.Printf("Username: %s\n", result.Username)
	c.io.Printf("User ID:  %s\n", result.UserID)
	c.io.Println()
	c.io.Println("Run 'impo login' to start a session.")

	return nil
}

func (c *Cli) runLogin(ctx context.Context, creds credentials) error {
	c.io.Println("=== Login ===")
	c.io.Println()

	if err := c.ask(&creds.Username, "Username: "); err != nil {
		return err
	}
	password, err := c.readPassword(creds, "Password: ")
	if err != nil {
		return err
	}

	authData, err := c.auth.Login(ctx, creds.Username, password)
	if err != nil {
		return err
	}
	if c.sessions != nil {
		c.sessions.Set(session.ActorFromAuth(authData))
	}

	expiresAt := time.Unix(authData.ExpiresAt, 0)
	c.io.Println()
	c.io.Println("✓ Login successful!")
	c.io.Printf("Username: %s\n", authData.Username)
	c.io.Printf("Token expires: %s\n", expiresAt.Format(time.RFC3339))

	return nil
}

func (c *Cli) runLogout(ctx context.Context) error {
	pending, err := c.status.CountJobs(ctx)
	if err == nil && pending > 0 {
		c.io.Printf("⚠️  %d change(s) were not synchronized yet. They will be sent after the next login.\n", pending)
	}

	if err := c.auth.Logout(ctx); err != nil {
		if errors.Is(err, auth.ErrNotLoggedIn) {
			c.io.Println("Not logged in.")
			return nil
		}
		return err
	}
	if c.sessions != nil {
		c.sessions.Clear()
	}

	c.io.Println("✓ Logged out")
	return nil
}

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Status ===")
	c.io.Println()
	c.io.Printf("Server: %s\n", c.cfg.ServerURL)

	authData, err := c.auth.Current(ctx)
	switch {
	case errors.Is(err, auth.ErrNotLoggedIn):
		c.io.Println("Session: not authenticated")
		c.io.Println("Run 'impo login' to authenticate.")
	case err != nil:
		return fmt.Errorf("failed to check authentication: %w", err)
	default:
		expiresAt := time.Unix(authData.ExpiresAt, 0)
		c.io.Printf("Session: %s (%s)\n", authData.Username, authData.UserID)
		if remaining := expiresAt.Sub(c.now()); remaining > 0 {
			c.io.Printf("Token expires in: %s\n", remaining.Round(time.Second))
		} else {
			c.io.Println("⚠️  Token has expired. It will be refreshed on the next sync or run 'impo login'.")
		}
	}

	c.io.Println()
	pending, err := c.status.CountJobs(ctx)
	if err != nil {
		c.io.Printf("Warning: failed to count pending changes: %v\n", err)
	} else if pending > 0 {
		c.io.Printf("⚠️  Pending sync: %d change(s) waiting to be sent\n", pending)
	} else {
		c.io.Println("✓ No pending changes")
	}

	last, err := c.status.GetLastSync(ctx)
	switch {
	case err != nil:
		c.io.Printf("Warning: failed to read last sync: %v\n", err)
	case last.At == 0:
		c.io.Println("Last sync: never")
	default:
		c.io.Printf("Last sync: %s (%s)\n", time.UnixMilli(last.At).Format(time.RFC3339), last.Status)
	}

	return nil
}
