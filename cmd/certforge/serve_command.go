package main

import (
	"github.com/spf13/cobra"

	"github.com/certforge/certforge/internal/logging"
	"github.com/certforge/certforge/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the tool server over stdin/stdout",
		Long:  "Serve exposes the certificate pipeline as JSON-RPC tools on standard\ninput and output. Logs go to stderr; stdout carries only protocol frames.",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureServices()
			if err != nil {
				return err
			}

			svc.logger.Debug("starting tool server",
				logging.String("version", Version),
				logging.String("commit", GitCommit))

			srv := server.New(server.Options{
				Engine:      svc.engine,
				Cache:       svc.cache,
				Analyzer:    svc.analyzer,
				Store:       svc.store,
				Coordinator: svc.coordinator,
				Logger:      svc.logger,
			})
			return srv.Run()
		},
	}
}
