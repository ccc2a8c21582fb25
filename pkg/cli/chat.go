package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/m-mizutani/cultra/pkg/model"
	"github.com/m-mizutani/cultra/pkg/tool/websearch"
	"github.com/m-mizutani/cultra/pkg/usecase/interpret"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

const chatHelp = `Type a phrase, idiom, joke, or gesture to interpret it.
Commands:
  /culture <name>  set the target culture (All for no filter)
  /cultures        list suggested cultures
  /tone <0-1>      set the answer tone, 0 is casual and 1 is formal
  /help            show this help
  exit             quit`

// chatSettings is the culture and tone applied to every query in a chat session
type chatSettings struct {
	culture string
	tone    float64
}

func (s *chatSettings) prompt() string {
	return fmt.Sprintf("[%s, tone %.1f] > ", s.culture, s.tone)
}

// apply handles a slash command and returns the message to show
func (s *chatSettings) apply(line string) (string, error) {
	name, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "culture":
		if arg == "" {
			return "", goerr.New("usage: /culture <name>")
		}
		s.culture = arg
		return "Culture set to " + arg, nil

	case "cultures":
		return strings.Join(model.Cultures, ", "), nil

	case "tone":
		tone, err := strconv.ParseFloat(arg, 64)
		if err != nil || tone < 0 || tone > 1 {
			return "", goerr.New("usage: /tone <number between 0 and 1>", goerr.V("input", arg))
		}
		s.tone = tone
		return fmt.Sprintf("Tone set to %.2f", tone), nil

	case "help":
		return chatHelp, nil

	default:
		return "", goerr.New("unknown command, type /help", goerr.V("command", name))
	}
}

func chatCommand() *cli.Command {
	var (
		cfg     config
		culture string
		tone    float64
	)
	search := websearch.New()

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "culture",
			Aliases:     []string{"c"},
			Usage:       "Initial target culture. All means no filter",
			Value:       model.CultureAll,
			Sources:     cli.EnvVars("CULTRA_CULTURE"),
			Destination: &culture,
		},
		&cli.FloatFlag{
			Name:        "tone",
			Aliases:     []string{"t"},
			Usage:       "Initial answer tone from 0 (casual) to 1 (formal)",
			Value:       model.DefaultTone,
			Sources:     cli.EnvVars("CULTRA_TONE"),
			Destination: &tone,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, firestoreFlags(&cfg)...)
	flags = append(flags, search.Flags()...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive session; every line is an independent query",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			uc, err := cfg.newUseCase(ctx, search)
			if err != nil {
				return err
			}

			settings := &chatSettings{culture: culture, tone: tone}
			return runChat(ctx, uc, settings, c.Root().Writer)
		},
	}
}

func runChat(ctx context.Context, uc *interpret.UseCase, settings *chatSettings, w io.Writer) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          settings.prompt(),
		HistoryFile:     historyFile(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdout:          w,
	})
	if err != nil {
		return goerr.Wrap(err, "failed to start line editor")
	}
	defer rl.Close()

	fmt.Fprintln(w, chatHelp)

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				break
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return goerr.Wrap(err, "failed to read input")
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == "exit" || line == "quit":
			return nil
		case strings.HasPrefix(line, "/"):
			msg, err := settings.apply(line)
			if err != nil {
				fmt.Fprintln(w, err.Error())
				continue
			}
			fmt.Fprintln(w, msg)
			rl.SetPrompt(settings.prompt())
			continue
		}

		resp, err := uc.HandleQuery(ctx, line, settings.culture, settings.tone)
		if err != nil {
			if errors.Is(err, model.ErrUnrecoverable) {
				return goerr.Wrap(err, "chat session aborted")
			}
			fmt.Fprintln(w, describeError(err))
			continue
		}
		printResponse(w, resp)
		fmt.Fprintln(w)
	}

	return nil
}

func historyFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	dir = filepath.Join(dir, "cultra")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return ""
	}
	return filepath.Join(dir, "chat_history")
}
