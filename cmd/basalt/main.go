package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/basalt/internal"
	"github.com/starford/basalt/internal/bases"
	"github.com/starford/basalt/internal/search"
	pkgconfig "github.com/starford/basalt/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	// The flag wins over the file.
	if v := cmd.String("vault"); v != "" {
		cfg.Vault.Path = v
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}
	if cmd.Bool("stdio") {
		opts = append(opts, internal.WithStdio(os.Stdin, os.Stdout))
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	err = internal.Run(ctx,
		internal.WithConfig(cfg),
		internal.WithVersion(version),
		internal.WithHTTP(false),
		internal.WithStdio(os.Stdin, os.Stdout))
	if err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func openVault(cmd *cli.Command) (*internal.Vault, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return internal.OpenVault(cfg, internal.NewLogger(cfg, os.Stderr))
}

func runSearch(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() == 0 {
		return errors.New("search: a query is required")
	}
	v, err := openVault(cmd)
	if err != nil {
		return err
	}

	p := search.Params{
		Query:         strings.Join(cmd.Args().Slice(), " "),
		Limit:         int(cmd.Int("limit")),
		CaseSensitive: cmd.Bool("case-sensitive"),
	}
	if cmd.IsSet("content") {
		b := cmd.Bool("content")
		p.SearchContent = &b
	}
	if cmd.IsSet("frontmatter") {
		b := cmd.Bool("frontmatter")
		p.SearchFrontmatter = &b
	}

	results, err := v.Service.Search(ctx, p)
	if err != nil {
		return err
	}
	return printJSON(cmd.Root().Writer, results)
}

func runQuery(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return errors.New("query: exactly one base path is required")
	}
	v, err := openVault(cmd)
	if err != nil {
		return err
	}

	res, err := v.Service.QueryBase(ctx, bases.Params{
		Path:               cmd.Args().First(),
		View:               cmd.String("view"),
		Limit:              int(cmd.Int("limit")),
		IncludeFrontmatter: cmd.Bool("frontmatter"),
	})
	if err != nil {
		return err
	}
	return printJSON(cmd.Root().Writer, res)
}

func printJSON(w io.Writer, v any) error {
	if w == nil {
		w = os.Stdout
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "basalt",
		Usage:   "Ranked search and structured base queries over a Markdown vault",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "vault",
				Usage:   "Vault directory (overrides vault.path)",
				Sources: cli.EnvVars("BASALT_VAULT"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API and watch the vault",
				Action: serve,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "stdio", Usage: "Also serve MCP over stdin/stdout"},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP over stdin/stdout only",
				Action: serveMCP,
			},
			{
				Name:      "search",
				Usage:     "Run one ranked search and print JSON results",
				ArgsUsage: "<query>",
				Action:    runSearch,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum results (default 5, max 20)"},
					&cli.BoolFlag{Name: "content", Value: true, Usage: "Search note bodies"},
					&cli.BoolFlag{Name: "frontmatter", Usage: "Search YAML frontmatter"},
					&cli.BoolFlag{Name: "case-sensitive", Usage: "Match case exactly"},
				},
			},
			{
				Name:      "query",
				Usage:     "Run a .base query and print the JSON result",
				ArgsUsage: "<base>",
				Action:    runQuery,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "view", Usage: "View name"},
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum notes (default view limit or 50, max 100)"},
					&cli.BoolFlag{Name: "frontmatter", Aliases: []string{"fm"}, Usage: "Include frontmatter"},
				},
			},
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
