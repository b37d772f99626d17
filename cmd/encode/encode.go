package encode

import (
	"fmt"
	"httptun/internal/blv"
	"httptun/internal/obfs"
	"httptun/internal/tunnel"
	"io"
	"os"

	"github.com/spf13/cobra"
)

type options struct {
	obfs     string
	offset   uint32
	cmd      string
	mark     string
	host     string
	port     string
	data     string
	dataFile string
}

var opts options

var Cmd = &cobra.Command{
	Use:   "encode",
	Short: "Build a tunnel request body and write it to stdout",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return encode(cmd.OutOrStdout(), &opts)
	},
}

func init() {
	f := Cmd.Flags()
	f.StringVar(&opts.obfs, "obfs", "substitution", "obfuscation mode of the body")
	f.Uint32Var(&opts.offset, "offset", blv.DefaultLengthOffset, "record length offset")
	f.StringVar(&opts.cmd, "cmd", "", "command: CONNECT, DISCONNECT, READ or FORWARD")
	f.StringVar(&opts.mark, "mark", "", "session mark")
	f.StringVar(&opts.host, "host", "", "target host for CONNECT")
	f.StringVar(&opts.port, "port", "", "target port for CONNECT")
	f.StringVar(&opts.data, "data", "", "payload for FORWARD")
	f.StringVar(&opts.dataFile, "data-file", "", "read the FORWARD payload from a file")
	Cmd.MarkFlagsMutuallyExclusive("data", "data-file")
}

func encode(w io.Writer, o *options) error {
	rec := blv.Record{}
	set := func(tag byte, v string) {
		if v != "" {
			rec.Set(tag, v)
		}
	}
	set(blv.TagCommand, o.cmd)
	set(blv.TagMark, o.mark)
	set(blv.TagHost, o.host)
	set(blv.TagPort, o.port)
	set(blv.TagData, o.data)
	if o.dataFile != "" {
		data, err := os.ReadFile(o.dataFile)
		if err != nil {
			return err
		}
		rec[blv.TagData] = data
	}

	ob, err := obfs.New(o.obfs)
	if err != nil {
		return err
	}
	body, err := tunnel.NewCodec(ob, o.offset).Encode(rec)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	_, err = w.Write(body)
	return err
}
