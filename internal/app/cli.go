package app

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"RedisVSCode-Webview/internal/config"
	"RedisVSCode-Webview/internal/connection"
	"RedisVSCode-Webview/internal/seed"
)

// NewCLI builds the command line front end. Configuration is loaded once
// before any command runs.
func NewCLI() *cli.App {
	var application *App
	current := func() *App { return application }

	return &cli.App{
		Name:    "redis-vscode-webview",
		Usage:   "Browse and prune Redis keys through the keys REST API",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (default: " + config.DefaultConfigPath() + ")",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override logging level: debug, info, warn, error",
			},
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}
			if lvl := c.String("log-level"); lvl != "" {
				cfg.Logging.Level = lvl
			}
			application = NewApp(cfg, c.App.Writer)
			application.Startup()
			return nil
		},
		After: func(c *cli.Context) error {
			if application != nil {
				application.Shutdown()
			}
			return nil
		},
		Commands: []*cli.Command{
			scanCommand(current),
			deleteCommand(current),
			bridgeCommand(current),
			serveCommand(current),
			seedCommand(current),
			configCommand(current),
		},
	}
}

func scanCommand(app func() *App) *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "List keys page by page",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "match", Aliases: []string{"m"}, Usage: "Glob pattern or exact key name"},
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "Only list keys of this type"},
			&cli.IntFlag{Name: "count", Usage: "Page size (default from config)"},
			&cli.IntFlag{Name: "limit", Usage: "Keep loading pages until this many keys are listed"},
			&cli.BoolFlag{Name: "resume", Usage: "Continue the saved listing"},
			&cli.StringFlag{Name: "export", Usage: "Write the listing to a .xlsx, .csv, .json or .md file"},
			&cli.BoolFlag{Name: "no-info", Usage: "Skip loading type, TTL and size of listed keys"},
		},
		Action: func(c *cli.Context) error {
			_, err := app().ScanKeys(c.Context, ScanOptions{
				Match:    c.String("match"),
				Type:     c.String("type"),
				Count:    c.Int("count"),
				Limit:    c.Int("limit"),
				Resume:   c.Bool("resume"),
				Export:   c.String("export"),
				SkipInfo: c.Bool("no-info"),
			})
			return err
		},
	}
}

func deleteCommand(app func() *App) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete one key",
		ArgsUsage: "NAME",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("需要且只需要一个 Key 名称", 2)
			}
			return app().DeleteKey(c.Context, connection.RedisString(c.Args().First()))
		},
	}
}

func bridgeCommand(app func() *App) *cli.Command {
	return &cli.Command{
		Name:  "bridge",
		Usage: "Exchange newline-delimited JSON messages with the host on stdin/stdout",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "auto-refresh", Usage: "Cron spec for periodic tree refreshes"},
		},
		Action: func(c *cli.Context) error {
			return app().RunBridge(c.Context, os.Stdin, os.Stdout, c.String("auto-refresh"))
		},
	}
}

func serveCommand(app func() *App) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the keys API on top of the configured Redis",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address (default from config)"},
		},
		Action: func(c *cli.Context) error {
			return app().Serve(c.Context, c.String("addr"))
		},
	}
}

func seedCommand(app func() *App) *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Create test keys in the configured Redis",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "prefix", Value: "test:", Usage: "Key name prefix"},
			&cli.IntFlag{Name: "count", Value: 100, Usage: "Keys per type"},
			&cli.StringSliceFlag{Name: "types", Usage: "Key types to create (default: all)"},
			&cli.Int64Flag{Name: "ttl", Usage: "TTL in seconds for string keys"},
		},
		Action: func(c *cli.Context) error {
			_, err := app().Seed(c.Context, seed.Options{
				Prefix: c.String("prefix"),
				Count:  c.Int("count"),
				Types:  c.StringSlice("types"),
				TTL:    c.Int64("ttl"),
			})
			return err
		},
	}
}

func configCommand(app func() *App) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Print the effective configuration",
		Action: func(c *cli.Context) error {
			out, err := config.Dump(app().Config())
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(c.App.Writer, string(out))
			return err
		},
	}
}
