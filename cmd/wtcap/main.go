package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wtcap/wtcap/internal/capture"
	"github.com/wtcap/wtcap/internal/catalog"
	"github.com/wtcap/wtcap/internal/config"
	"github.com/wtcap/wtcap/internal/logger"
)

// buildGitSHA and buildGitDirty are overridden via -ldflags at build
// time; both are empty/nil in a plain `go build`.
var (
	buildGitSHA   = ""
	buildGitDirty = ""
)

func main() {
	var (
		wsListen      string
		wsToken       string
		wsAllowRemote bool
		wsSendBuffer  int
		logLevel      string
		logFile       string
		noCatalog     bool
	)

	root := &cobra.Command{
		Use:   "wtcap [flags] -- <prefix> [command...]",
		Short: "Record a terminal session to a seekable TCAP log",
		Long: "wtcap supervises a child command inside a pty, relaying its\n" +
			"input and output live while persisting both streams to disk in\n" +
			"a time-indexed format that supports offline seek by time or\n" +
			"byte offset.",
		Args:               cobra.MinimumNArgs(1),
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			defaults, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if logLevel == "" {
				logLevel = defaults.LogLevel
			}
			if logFile == "" {
				logFile = defaults.LogFile
			}
			if wsListen == "" {
				wsListen = defaults.WSListen
			}
			if err := logger.Init(logLevel, logFile); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			prefix := args[0]
			command := args[1:]
			if len(command) == 0 && defaults.Shell != "" {
				command = []string{defaults.Shell}
			}

			var dirty *bool
			if buildGitDirty != "" {
				v := buildGitDirty == "true"
				dirty = &v
			}

			catalogPath := ""
			if !noCatalog {
				dir, err := config.Dir()
				if err == nil {
					if err := os.MkdirAll(dir, 0755); err == nil {
						catalogPath = catalog.DefaultPath(dir)
					}
				}
			}

			cfg := capture.Config{
				Prefix:        prefix,
				Command:       command,
				BuildGitSHA:   buildGitSHA,
				BuildGitDirty: dirty,
				CatalogPath:   catalogPath,
				WS: capture.WSConfig{
					Listen:      wsListen,
					Token:       wsToken,
					AllowRemote: wsAllowRemote,
					SendBuffer:  wsSendBuffer,
				},
			}

			code, err := capture.Run(cfg)
			if err != nil {
				fmt.Fprintf(os.Stderr, "wtcap: %v\n", err)
			}
			os.Exit(code)
			return nil
		},
	}

	root.Flags().StringVar(&wsListen, "ws-listen", "", "host:port to advertise in the discovery stub (no server is started)")
	root.Flags().StringVar(&wsToken, "ws-token", "", "token to record in the discovery stub")
	root.Flags().BoolVar(&wsAllowRemote, "ws-allow-remote", false, "record that remote access would be allowed")
	root.Flags().IntVar(&wsSendBuffer, "ws-send-buffer", 0, "send buffer size to record in the discovery stub")
	root.Flags().StringVar(&logLevel, "log-level", "", "debug|info|warn|error (default from config, else info)")
	root.Flags().StringVar(&logFile, "log-file", "", "optional append-mode log file (default from config)")
	root.Flags().BoolVar(&noCatalog, "no-catalog", false, "don't record this session in the local session catalog")

	root.AddCommand(inspectCmd(), seekCmd(), sessionsCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
