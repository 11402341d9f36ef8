package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/jwintz/obsidianp-sub000/internal"
	pkgconfig "github.com/jwintz/obsidianp-sub000/pkg/config"
)

type runner func(ctx context.Context, opts ...internal.Option) error

func action(run runner) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		configPath := cmd.String("config")

		cfg := internal.NewDefaultConfig()
		if err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
		if vault := cmd.String("vault"); vault != "" {
			cfg.Vault.Path = vault
		}
		if out := cmd.String("out"); out != "" {
			cfg.Build.OutputPath = out
		}

		if err := run(ctx, internal.WithConfig(cfg)); err != nil {
			return fmt.Errorf("%s: %w", cmd.Name, err)
		}
		return nil
	}
}

func main() {
	vaultFlag := &cli.StringFlag{
		Name:    "vault",
		Usage:   "Vault directory (overrides vault.path)",
		Sources: cli.EnvVars("VAULTGRAPH_VAULT"),
	}

	cmd := &cli.Command{
		Name:  "vaultgraph",
		Usage: "Build a linked, queryable graph from a Markdown vault",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "build",
				Usage:  "Build the graph once and write it as JSON",
				Action: action(internal.Build),
				Flags: []cli.Flag{
					vaultFlag,
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Output file (overrides build.output_path)",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve the graph over HTTP and rebuild on vault changes",
				Action: action(internal.Serve),
				Flags:  []cli.Flag{vaultFlag},
			},
			{
				Name:   "mcp",
				Usage:  "Serve the graph to an MCP client over stdio",
				Action: action(internal.MCP),
				Flags:  []cli.Flag{vaultFlag},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
