// Command wtcap-xxd is a small ancillary hex-dumping utility: a pure
// reader over either raw bytes (stdin, classic hexdump -C style) or a
// .tidx sidecar (record-by-record, via internal/tcap).
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/wtcap/wtcap/internal/tcap"
)

func main() {
	tidxPath := flag.String("tidx", "", "decode a .tidx sidecar's records instead of hex-dumping stdin")
	flag.Parse()

	if *tidxPath != "" {
		if err := dumpTidx(*tidxPath); err != nil {
			fmt.Fprintf(os.Stderr, "wtcap-xxd: %v\n", err)
			os.Exit(1)
		}
		return
	}

	dumper := hex.Dumper(os.Stdout)
	defer dumper.Close()
	if _, err := io.Copy(dumper, os.Stdin); err != nil {
		fmt.Fprintf(os.Stderr, "wtcap-xxd: %v\n", err)
		os.Exit(1)
	}
}

func dumpTidx(path string) error {
	ix, err := tcap.ReadTIndex(path, tcap.ReadOptions{})
	if err != nil {
		return err
	}
	fmt.Printf("started_at_unix_ns: %d (%s)\n", ix.StartedAtUnixNs, time.Unix(0, ix.StartedAtUnixNs).Format(time.RFC3339))
	fmt.Printf("records: %d\n", ix.Len())
	for i := 0; i < ix.Len(); i++ {
		fmt.Printf("%8d  t=%-20s end_offset=%d\n", i, time.Duration(ix.TNs[i]), ix.EndOffset[i])
	}
	return nil
}
