package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/wtcap/wtcap/internal/tcap"
)

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <prefix> [prefix...]",
		Short: "Print a summary of one or more recorded sessions' artifacts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Each prefix is read from disk independently, so fan the
			// reads out and print them back in the order given.
			reports := make([]string, len(args))
			var g errgroup.Group
			for i, prefix := range args {
				i, prefix := i, prefix
				g.Go(func() error {
					reports[i] = inspectOne(prefix)
					return nil
				})
			}
			g.Wait()

			fmt.Print(strings.Join(reports, "\n"))
			return nil
		},
	}
}

func inspectOne(prefix string) string {
	var b strings.Builder

	meta, err := tcap.ReadMeta(prefix + ".meta.json")
	if err != nil {
		fmt.Fprintf(&b, "%s: read meta: %v\n", prefix, err)
		return b.String()
	}
	fmt.Fprintf(&b, "prefix:      %s\n", meta.Prefix)
	fmt.Fprintf(&b, "pid:         %d\n", meta.PID)
	fmt.Fprintf(&b, "started at:  %s\n", time.Unix(0, meta.StartedAtUnixNs).Format(time.RFC3339))
	if meta.BuildGitSHA != "" {
		dirty := ""
		if meta.BuildGitDirty != nil && *meta.BuildGitDirty {
			dirty = " (dirty)"
		}
		fmt.Fprintf(&b, "built from:  %s%s\n", meta.BuildGitSHA, dirty)
	}

	for _, stream := range []string{"input", "output"} {
		rawPath := prefix + "." + stream
		size, err := fileSize(rawPath)
		if err != nil {
			fmt.Fprintf(&b, "%-6s  (unreadable: %v)\n", stream, err)
			continue
		}
		ix, err := tcap.ReadTIndex(prefix+"."+stream+".tidx", tcap.ReadOptions{})
		if err != nil {
			fmt.Fprintf(&b, "%-6s  %s raw, index unreadable: %v\n", stream, humanize.Bytes(uint64(size)), err)
			continue
		}
		var duration time.Duration
		if ix.Len() > 0 {
			duration = time.Duration(ix.TNs[ix.Len()-1])
		}
		fmt.Fprintf(&b, "%-6s  %s raw, %d records, spans %s\n", stream, humanize.Bytes(uint64(size)), ix.Len(), duration)
	}

	events, err := tcap.ParseEvents(prefix + ".events.jsonl")
	if err != nil {
		fmt.Fprintf(&b, "resize events: unreadable: %v\n", err)
	} else {
		fmt.Fprintf(&b, "resize events: %d\n", len(events))
	}

	if stub, err := tcap.ReadStub(prefix); err == nil {
		fmt.Fprintf(&b, "ws stub:     id=%s listen=%s\n", stub.ID, stub.ListenURL)
	}

	return b.String()
}
