package main

import (
	"httptun/cmd/decode"
	"httptun/cmd/encode"
	"httptun/cmd/run"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "httptun",
		Short:        "TCP tunnel carried over plain HTTP requests",
		SilenceUsage: true,
	}
	root.AddCommand(run.Cmd, decode.Cmd, encode.Cmd)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
