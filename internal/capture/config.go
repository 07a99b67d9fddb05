package capture

import (
	"fmt"
	"os"
)

// WSConfig carries the four transport placeholder flags (§4.8/§6.5).
// The core never implements a server; it only checks whether any field
// is present and, if so, writes a discovery stub next to the capture
// artifacts.
type WSConfig struct {
	Listen      string
	Token       string
	AllowRemote bool
	SendBuffer  int
}

// Present reports whether any transport flag was set.
func (w WSConfig) Present() bool {
	return w.Listen != "" || w.Token != "" || w.AllowRemote || w.SendBuffer != 0
}

// Config is the validated configuration record accepted by Run (C8).
type Config struct {
	// Prefix is the opaque path-like base for every TCAP artifact.
	Prefix string
	// Command is the argv to exec inside the PTY; empty means launch
	// the default interactive shell.
	Command []string
	// BuildGitSHA and BuildGitDirty populate P.meta.json when set by
	// the build (ldflags); both are optional.
	BuildGitSHA   string
	BuildGitDirty *bool

	// CatalogPath is the optional sqlite database that records this
	// session's start/end for `wtcap sessions`. Empty disables the
	// catalog entirely — it is never required for a capture to run.
	CatalogPath string

	WS WSConfig
}

// Validate checks every field before any side effect runs — no PTY is
// opened, no file is created, until a Config passes (§4.8, error kind 1).
func (c Config) Validate() error {
	if c.Prefix == "" {
		return fmt.Errorf("capture: empty log prefix")
	}
	return nil
}

// Shell resolves the fallback interactive shell used when Command is
// empty: $SHELL if set, else /bin/sh.
func (c Config) Shell() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}

// Argv returns the exec argv to run: Command if non-empty, else the
// default shell with no arguments.
func (c Config) Argv() []string {
	if len(c.Command) > 0 {
		return c.Command
	}
	return []string{c.Shell()}
}
