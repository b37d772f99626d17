package decode

import (
	"encoding/hex"
	"fmt"
	"httptun/internal/blv"
	"httptun/internal/obfs"
	"httptun/internal/tunnel"
	"io"
	"os"
	"slices"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	obfsName   string
	offset     uint32
	showDecoys bool
)

var Cmd = &cobra.Command{
	Use:   "decode [file]",
	Short: "Decode a captured tunnel body and print its fields",
	Long:  "Decode a captured tunnel request or response body. Reads stdin when no file is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := cmd.InOrStdin()
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		return decode(cmd.OutOrStdout(), in)
	},
}

func init() {
	Cmd.Flags().StringVar(&obfsName, "obfs", "substitution", "obfuscation mode of the body")
	Cmd.Flags().Uint32Var(&offset, "offset", blv.DefaultLengthOffset, "record length offset")
	Cmd.Flags().BoolVar(&showDecoys, "decoys", false, "also print decoy fields")
}

func decode(w io.Writer, r io.Reader) error {
	body, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	o, err := obfs.New(obfsName)
	if err != nil {
		return err
	}
	rec, err := tunnel.NewCodec(o, offset).Decode(body)
	if err != nil {
		return err
	}

	tags := make([]byte, 0, len(rec))
	for tag := range rec {
		if blv.IsDecoy(tag) && !showDecoys {
			continue
		}
		tags = append(tags, tag)
	}
	slices.Sort(tags)

	for _, tag := range tags {
		v := rec[tag]
		switch {
		case tag == blv.TagData || blv.IsDecoy(tag):
			fmt.Fprintf(w, "%s (%d bytes)\n", blv.TagName(tag), len(v))
			if len(v) > 0 {
				fmt.Fprint(w, hex.Dump(v))
			}
		default:
			fmt.Fprintf(w, "%s: %s\n", blv.TagName(tag), strconv.Quote(string(v)))
		}
	}
	return nil
}
