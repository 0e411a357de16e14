package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/atvirokodosprendimai/cabinetd/internal/app"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("could not load .env file")
	}

	cmd := &cli.Command{
		Name:  "cabinetd",
		Usage: "Multi-tenant cabinet workspace core",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Value: ":8080",
				Usage: "HTTP listen address",
			},
			&cli.StringFlag{
				Name:    "db-path",
				Value:   "./cabinetd.sqlite",
				Sources: cli.EnvVars("CABINETD_DB_PATH"),
				Usage:   "SQLite file path",
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Sources: cli.EnvVars("CABINETD_REDIS_URL"),
				Usage:   "Redis URL for the permission cache (in-memory cache when empty)",
			},
			&cli.DurationFlag{
				Name:    "cache-ttl",
				Value:   5 * time.Minute,
				Sources: cli.EnvVars("CABINETD_CACHE_TTL"),
				Usage:   "Permission cache entry lifetime",
			},
			&cli.StringFlag{
				Name:    "audit-mode",
				Value:   "direct",
				Sources: cli.EnvVars("CABINETD_AUDIT_MODE"),
				Usage:   "Audit delivery mode: direct or queued",
			},
			&cli.DurationFlag{
				Name:  "audit-interval",
				Value: 2 * time.Second,
				Usage: "Queued audit dispatch interval",
			},
			&cli.IntFlag{
				Name:  "audit-batch-size",
				Value: 100,
				Usage: "Queued audit dispatch batch size",
			},
			&cli.BoolFlag{
				Name:    "demote-former-owner",
				Sources: cli.EnvVars("CABINETD_DEMOTE_FORMER_OWNER"),
				Usage:   "Reset the previous owner to the operator role after an ownership transfer",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Sources: cli.EnvVars("CABINETD_LOG_LEVEL"),
				Usage:   "Log level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "text",
				Sources: cli.EnvVars("CABINETD_LOG_FORMAT"),
				Usage:   "Log format: text or json",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			log, err := buildLogger(c.String("log-level"), c.String("log-format"))
			if err != nil {
				return err
			}

			mode := c.String("audit-mode")
			if mode != "direct" && mode != "queued" {
				return fmt.Errorf("invalid audit-mode %q", mode)
			}

			cfg := app.Config{
				Addr:              c.String("addr"),
				DBPath:            c.String("db-path"),
				RedisURL:          c.String("redis-url"),
				CacheTTL:          c.Duration("cache-ttl"),
				AuditMode:         mode,
				AuditInterval:     c.Duration("audit-interval"),
				AuditBatchSize:    int(c.Int("audit-batch-size")),
				DemoteFormerOwner: c.Bool("demote-former-owner"),
			}

			server, closer, err := app.NewServer(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("create server: %w", err)
			}
			defer func() {
				if closeErr := closer.Close(); closeErr != nil {
					log.WithError(closeErr).Error("close resources")
				}
			}()

			errCh := make(chan error, 1)
			go func() {
				log.WithField("addr", cfg.Addr).Info("listening")
				errCh <- server.ListenAndServe()
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			case sig := <-sigCh:
				log.WithField("signal", sig.String()).Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func buildLogger(level, format string) (*logrus.Logger, error) {
	log := logrus.New()
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log-level %q", level)
	}
	log.SetLevel(parsed)
	switch format {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	case "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("invalid log-format %q", format)
	}
	return log, nil
}
