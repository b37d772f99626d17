package run

import (
	"httptun/internal/conf"
	"httptun/internal/flog"
	"httptun/internal/server"

	"github.com/spf13/cobra"
)

var confPath string

var Cmd = &cobra.Command{
	Use:   "run",
	Short: "Serve the tunnel endpoint",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := conf.LoadFromFile(confPath)
		if err != nil {
			flog.Fatalf("Failed to load configuration: %v", err)
		}
		if err := flog.Setup(cfg.Log.Level, cfg.Log.Format); err != nil {
			flog.Fatalf("Failed to set up logging: %v", err)
		}
		defer flog.Sync()

		startServer(cfg)
	},
}

func init() {
	Cmd.Flags().StringVarP(&confPath, "config", "c", "config.yaml", "path to the configuration file")
}

func startServer(cfg *conf.Conf) {
	flog.Infof("Starting server...")
	srv, err := server.New(cfg)
	if err != nil {
		flog.Fatalf("Failed to initialize server: %v", err)
	}
	if err := srv.Start(); err != nil {
		flog.Fatalf("Server encountered an error: %v", err)
	}
}
