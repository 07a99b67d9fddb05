package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wtcap/wtcap/internal/tcap"
)

func seekCmd() *cobra.Command {
	var (
		atTime   time.Duration
		atOffset int64
		haveTime bool
		stream   string
	)

	cmd := &cobra.Command{
		Use:   "seek <prefix> (--at-time DURATION | --at-offset N) --stream in|out",
		Short: "Print the complementary offset/time pair for a query point",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := args[0]
			haveTime = cmd.Flags().Changed("at-time")
			haveOffset := cmd.Flags().Changed("at-offset")
			if haveTime == haveOffset {
				return fmt.Errorf("exactly one of --at-time or --at-offset is required")
			}
			if stream != "in" && stream != "out" {
				return fmt.Errorf("--stream must be \"in\" or \"out\"")
			}

			suffix := ".output.tidx"
			if stream == "in" {
				suffix = ".input.tidx"
			}
			ix, err := tcap.ReadTIndex(prefix+suffix, tcap.ReadOptions{})
			if err != nil {
				return fmt.Errorf("read index: %w", err)
			}

			if haveTime {
				offset := ix.OffsetAtTime(atTime.Nanoseconds())
				fmt.Printf("t=%s -> offset=%d\n", atTime, offset)
				return nil
			}

			t := ix.TimeAtOffset(atOffset)
			rendered := ix.RenderedTimeAtOffset(atOffset)
			fmt.Printf("offset=%d -> t=%s (rendered=%s)\n", atOffset, time.Duration(t), time.Duration(rendered))
			return nil
		},
	}

	cmd.Flags().DurationVar(&atTime, "at-time", 0, "query by elapsed duration since session start")
	cmd.Flags().Int64Var(&atOffset, "at-offset", 0, "query by byte offset into the stream")
	cmd.Flags().StringVar(&stream, "stream", "out", "which raw stream to query: in or out")
	return cmd
}
