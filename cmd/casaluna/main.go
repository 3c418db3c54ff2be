package main

import (
	"context"
	"log"
	"os"

	"github.com/spf13/cobra"

	"casaluna/internal/app"
	"casaluna/internal/xpkg/logger"
)

func main() {
	var (
		configPath string
		port       int
		logLevel   string
	)

	root := &cobra.Command{
		Use:           "casaluna",
		Short:         "Casa Luna restaurant order management",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the order-management API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			mylog, err := logger.New(logLevel)
			if err != nil {
				return err
			}
			mylog = mylog.With("service", "casaluna")
			return app.Execute(context.Background(), mylog, app.Params{
				ConfigPath: configPath,
				Port:       port,
			})
		},
	}
	serve.Flags().StringVar(&configPath, "config-path", "config.yaml", "path to the YAML config")
	serve.Flags().IntVar(&port, "port", 0, "override the configured HTTP port")
	serve.Flags().StringVar(&logLevel, "log-level", "INFO", "log level: DEBUG, INFO, WARN or ERROR")

	root.AddCommand(serve)

	if err := root.Execute(); err != nil {
		log.Printf("casaluna: %v", err)
		os.Exit(1)
	}
}
