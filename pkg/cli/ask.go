package cli

import (
	"context"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/m-mizutani/cultra/pkg/model"
	"github.com/m-mizutani/cultra/pkg/tool/websearch"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func askCommand() *cli.Command {
	var (
		cfg       config
		query     string
		culture   string
		tone      float64
		noSpinner bool
	)
	search := websearch.New()

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "query",
			Aliases:     []string{"q"},
			Usage:       "Phrase, idiom, joke, or gesture to interpret",
			Destination: &query,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "culture",
			Aliases:     []string{"c"},
			Usage:       "Target culture, e.g. Japan. All means no filter",
			Value:       model.CultureAll,
			Sources:     cli.EnvVars("CULTRA_CULTURE"),
			Destination: &culture,
		},
		&cli.FloatFlag{
			Name:        "tone",
			Aliases:     []string{"t"},
			Usage:       "Answer tone from 0 (casual) to 1 (formal)",
			Value:       model.DefaultTone,
			Sources:     cli.EnvVars("CULTRA_TONE"),
			Destination: &tone,
		},
		&cli.BoolFlag{
			Name:        "no-spinner",
			Usage:       "Do not show progress while answering",
			Destination: &noSpinner,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, firestoreFlags(&cfg)...)
	flags = append(flags, search.Flags()...)

	return &cli.Command{
		Name:  "ask",
		Usage: "Answer a single query",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			if _, err := model.NewQuery(query, culture, tone); err != nil {
				return goerr.New(describeError(err))
			}

			uc, err := cfg.newUseCase(ctx, search)
			if err != nil {
				return err
			}

			var spin *spinner.Spinner
			if !noSpinner {
				spin = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
				spin.Suffix = " Interpreting..."
				spin.Start()
			}

			resp, err := uc.HandleQuery(ctx, query, culture, tone)
			if spin != nil {
				spin.Stop()
			}
			if err != nil {
				return goerr.Wrap(err, "failed to answer query")
			}

			printResponse(c.Root().Writer, resp)
			return nil
		},
	}
}
