package cli

import (
	"context"

	"github.com/m-mizutani/cultra/pkg/metrics"
	"github.com/m-mizutani/cultra/pkg/service/mcp"
	"github.com/m-mizutani/cultra/pkg/tool/websearch"
	"github.com/m-mizutani/cultra/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func serveCommand() *cli.Command {
	var (
		cfg         config
		metricsAddr string
	)
	search := websearch.New()

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "metrics-addr",
			Usage:       "Expose Prometheus /metrics and /healthz on this address, e.g. :9090",
			Sources:     cli.EnvVars("CULTRA_METRICS_ADDR"),
			Destination: &metricsAddr,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, firestoreFlags(&cfg)...)
	flags = append(flags, search.Flags()...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Run as an MCP server over stdio with the interpret_phrase tool",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			uc, err := cfg.newUseCase(ctx, search)
			if err != nil {
				return err
			}

			if metricsAddr != "" {
				metricsCtx, cancel := context.WithCancel(ctx)
				defer cancel()

				prom := metrics.NewPrometheus()
				metrics.SetRecorder(prom)
				go func() {
					if err := prom.Serve(metricsCtx, metricsAddr); err != nil {
						logging.From(ctx).Error("metrics server stopped", "error", err)
					}
				}()
			}

			return mcp.Serve(ctx, uc, Version)
		},
	}
}
