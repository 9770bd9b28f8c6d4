package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/infusionsoft/internal/app"
	"github.com/florianilch/infusionsoft/internal/observability"
)

// flushTimeout bounds how long buffered log records may take to export on exit.
const flushTimeout = 5 * time.Second

// flagKeys maps global flags to the config keys they override.
var flagKeys = map[string]string{
	"client-id":     "auth.client_id",
	"client-secret": "auth.client_secret",
	"log-level":     "log.level",
	"log-format":    "log.format",
}

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string, version, commit string) error {
	return newRootCommand(version, commit).Run(ctx, args)
}

func newRootCommand(version, commit string) *cli.Command {
	return &cli.Command{
		Name:    "infusionsoft",
		Usage:   "Infusionsoft CRM REST client",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to a TOML config file",
				Sources: cli.EnvVars(app.EnvPrefix + "CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json|otel|otlp-http|otlp-grpc)",
			},
			&cli.StringFlag{
				Name:  "client-id",
				Usage: "OAuth2 client ID of the registered application",
			},
			&cli.StringFlag{
				Name:  "client-secret",
				Usage: "OAuth2 client secret of the registered application",
			},
		},
		Commands: []*cli.Command{
			authCommand(),
			accountCommand(),
			affiliatesCommand(),
			appointmentsCommand(),
			requestCommand(),
		},
	}
}

// loadConfig layers explicitly set global flags over file and environment config.
func loadConfig(path string, cmd *cli.Command, environ func() []string) (*app.Config, error) {
	overrides := make(map[string]any)
	for flag, key := range flagKeys {
		if cmd.IsSet(flag) {
			overrides[key] = cmd.String(flag)
		}
	}
	return app.LoadConfig(path, overrides, environ)
}

// session is the application for a single command invocation.
type session struct {
	*app.App
	cfg      *app.Config
	shutdown observability.ShutdownFunc
}

// newSession loads the config, sets up logging and builds the app.
// Callers must Close the session.
func newSession(ctx context.Context, cmd *cli.Command) (*session, error) {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return nil, err
	}

	shutdown, err := observability.Instrument(ctx, level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to set up observability layer: %w", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		_ = shutdown(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("failed to create app: %w", err)
	}

	return &session{App: application, cfg: cfg, shutdown: shutdown}, nil
}

// Close flushes buffered log records.
func (s *session) Close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
	defer cancel()

	if err := s.shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to flush logs: %v\n", err)
	}
}
