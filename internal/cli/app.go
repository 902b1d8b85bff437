// Package cli defines the command-line surface of cutie and drives the
// export pipeline: config load, authenticated fetch, field mapping,
// workbook write, optional email delivery.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/nocturnalbeast/cutie/internal/config"
)

// New builds the cutie command.
func New(version string) *cli.Command {
	return &cli.Command{
		Name:    "cutie",
		Usage:   "export all the tests from a QC ALM test plan to a spreadsheet",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "preferences",
				Aliases: []string{"p"},
				Sources: cli.EnvVars("CUTIE_PREFERENCES"),
				Usage:   "path to the preferences file (YAML or JSON)",
			},
			&cli.StringFlag{
				Name:    "mapping",
				Aliases: []string{"m"},
				Sources: cli.EnvVars("CUTIE_MAPPING"),
				Usage:   "path to the field mapping file (YAML or JSON)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Sources: cli.EnvVars("CUTIE_OUTPUT"),
				Usage:   "path of the Excel file to write",
			},
			&cli.BoolFlag{
				Name:    "email",
				Aliases: []string{"e"},
				Usage:   "send the finished export by email",
			},
			&cli.BoolFlag{
				Name:    "generate-preferences",
				Aliases: []string{"g"},
				Usage:   "write a default preferences.yaml template and exit",
			},
			&cli.StringFlag{
				Name:    "username",
				Sources: cli.EnvVars("ALM_USERNAME"),
				Usage:   "ALM username, overrides the preferences file",
			},
			&cli.StringFlag{
				Name:    "password",
				Sources: cli.EnvVars("ALM_PASSWORD"),
				Usage:   "ALM password, overrides the preferences file",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Sources: cli.EnvVars("LOG_LEVEL"),
				Value:   slog.LevelInfo.String(),
				Usage:   "logging level (DEBUG, INFO, WARN, ERROR)",
			},
		},
		Before: initLogger(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Bool("generate-preferences") {
				path, err := config.WriteDefault("preferences.yaml")
				if err != nil {
					return err
				}
				fmt.Println(color.GreenString("Default preferences written to %s", path))
				return nil
			}
			return runExport(ctx, cmd)
		},
	}
}

// RunApp runs the cutie command against the given arguments.
func RunApp(ctx context.Context, args []string, version string) error {
	return New(version).Run(ctx, args)
}

func initLogger() func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	return func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		// Set up default logging configuration
		var logLevel slog.Level
		if err := logLevel.UnmarshalText([]byte(cmd.String("log-level"))); err != nil {
			return nil, err
		}
		slog.SetDefault(
			slog.New(
				slog.NewTextHandler(
					os.Stderr,
					&slog.HandlerOptions{Level: logLevel},
				),
			),
		)

		return ctx, nil
	}
}
