package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/erazemk/stockboard/internal/config"
)

func main() {
	app := &cli.App{
		Name:  "stockboard",
		Usage: "inventory dashboard for a product and stock REST API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env", Aliases: []string{"e"}, Value: ".env", Usage: "environment file to load if present"},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the dashboard web server",
				Flags:  serveFlags(),
				Action: serve,
			},
			{
				Name:  "ping",
				Usage: "check that the backend API is reachable",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "api-url", Usage: "backend API base URL"},
				},
				Action: ping,
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "db", Aliases: []string{"d"}, Usage: "SQLite database path"},
		&cli.StringFlag{Name: "addr", Aliases: []string{"a"}, Usage: "listen address"},
		&cli.StringFlag{Name: "log", Aliases: []string{"l"}, Usage: "log file path (default: stdout/stderr only)"},
		&cli.StringFlag{Name: "api-url", Usage: "backend API base URL"},
		&cli.DurationFlag{Name: "api-timeout", Usage: "backend request timeout"},
		&cli.IntFlag{Name: "low-stock", Usage: "quantity at or below which a product counts as low stock"},
	}
}

// loadConfig reads the environment and applies any flags set on c.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("env"))
	if err != nil {
		return nil, err
	}

	if c.IsSet("db") {
		cfg.DBPath = c.String("db")
	}
	if c.IsSet("addr") {
		cfg.Addr = c.String("addr")
	}
	if c.IsSet("log") {
		cfg.LogPath = c.String("log")
	}
	if c.IsSet("api-url") {
		cfg.APIURL = c.String("api-url")
	}
	if c.IsSet("api-timeout") {
		cfg.APITimeout = c.Duration("api-timeout")
	}
	if c.IsSet("low-stock") {
		cfg.LowStockThreshold = c.Int("low-stock")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// sweepInterval is how often expired sessions and idle views are dropped.
const sweepInterval = 15 * time.Minute
