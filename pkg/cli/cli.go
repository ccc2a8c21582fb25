package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

// Version is set at build time
var Version = "dev"

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:    "cultra",
		Usage:   "Explain how phrases, idioms, jokes and gestures are interpreted across cultures",
		Version: Version,
		Commands: []*cli.Command{
			askCommand(),
			chatCommand(),
			indexCommand(),
			serveCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
