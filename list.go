package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/stupid-simple/jpf/jpf"
)

type listedRecord struct {
	Offset      int64  `json:"offset"`
	Fingerprint string `json:"fingerprint"`
	Kind        string `json:"kind"`
	Size        int    `json:"size"`
}

func listCommand(ctx context.Context, args Command, out io.Writer) error {
	f, err := os.Open(args.List.Archive)
	if err != nil {
		return err
	}
	defer f.Close()

	return listRecords(ctx, f, out, args.List.JSON)
}

// listRecords prints one line per record. Records decoded before an error
// are still printed.
func listRecords(ctx context.Context, archive io.Reader, out io.Writer, asJSON bool) error {
	var (
		tw  *tabwriter.Writer
		enc *json.Encoder
	)
	if asJSON {
		enc = json.NewEncoder(out)
	} else {
		tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "OFFSET\tFINGERPRINT\tKIND\tSIZE")
		defer tw.Flush()
	}

	r := jpf.NewReader(archive)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		offset := r.Offset()
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("could not read archive: %w", err)
		}

		listed := listedRecord{
			Offset:      offset,
			Fingerprint: fmt.Sprintf("%016x", rec.Fingerprint),
			Kind:        rec.Kind.String(),
			Size:        len(rec.Payload),
		}
		if asJSON {
			if err := enc.Encode(listed); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", listed.Offset, listed.Fingerprint, listed.Kind, listed.Size)
	}
}
