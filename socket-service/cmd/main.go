// Command socket-service runs the Jevah realtime socket service.
//
//	socket-service serve --config ./config/config.yaml
//	socket-service token --user <id> --role admin
package main

import (
	"os"

	"github.com/spf13/cobra"

	pkgconfig "github.com/jevah-app/jevahapp-backend-sub001/pkg/config"
	pkglog "github.com/jevah-app/jevahapp-backend-sub001/pkg/log"
)

const serviceName = "socket-service"

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		l := pkglog.L()
		l.Error().Err(err).Msg("socket-service exited with error")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	serve := buildServeCmd()
	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Realtime presence and room fan-out service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if configFile != "" {
				os.Setenv(pkgconfig.EnvConfigFile, configFile)
			}
		},
		RunE: serve.RunE,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to YAML configuration file")

	root.AddCommand(serve, buildTokenCmd())
	return root
}
