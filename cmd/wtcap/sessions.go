package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/wtcap/wtcap/internal/catalog"
	"github.com/wtcap/wtcap/internal/config"
)

func sessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List previously recorded sessions from the local catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := config.Dir()
			if err != nil {
				return err
			}
			path := catalog.DefaultPath(dir)
			if _, err := os.Stat(path); os.IsNotExist(err) {
				fmt.Println("no sessions recorded")
				return nil
			}

			store, err := catalog.Open(path)
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			defer store.Close()

			sessions, err := store.List()
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}
			if len(sessions) == 0 {
				fmt.Println("no sessions recorded")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PREFIX\tPID\tSTARTED\tSTATUS\tEXIT")
			for _, sess := range sessions {
				started := time.Unix(0, sess.StartedAtUnixNs)
				status := "running"
				exit := "-"
				if sess.EndedAtUnixNs.Valid {
					status = "done"
				}
				if sess.ExitCode.Valid {
					exit = fmt.Sprintf("%d", sess.ExitCode.Int64)
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", sess.Prefix, sess.PID, humanize.Time(started), status, exit)
			}
			return w.Flush()
		},
	}
}
