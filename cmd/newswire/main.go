// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/newswire"
	"github.com/poiesic/newswire/config"
	"github.com/poiesic/newswire/core"
	"github.com/poiesic/newswire/provider/newsapi"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "newswire",
		Usage: "Recurring news ingestion into a deduplicated article store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log output format (text, json)",
				Value: "text",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
				EnvVars: []string{"NEWSWIRE_CONFIG"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "fetch-articles",
				Usage:  "Fetch top headlines for one category or all of them",
				Action: fetchCommand(core.PipelineArticles),
				Flags:  articleFlags(),
			},
			{
				Name:   "fetch-sources",
				Usage:  "Fetch provider sources for one category or all of them",
				Action: fetchCommand(core.PipelineSources),
				Flags:  laneFlags(),
			},
			{
				Name:   "categories",
				Usage:  "List the categories supported by the provider",
				Action: categoriesCommand,
			},
			{
				Name:   "recent",
				Usage:  "Show the most recently published stored articles",
				Action: recentCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Number of articles to show",
						Value:   10,
					},
				},
			},
			{
				Name:   "status",
				Usage:  "Show stored counts and lane checkpoints",
				Action: statusCommand,
			},
		},
	}
}

func laneFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "category",
			Usage: "Run a single category lane; all categories when empty",
		},
		&cli.DurationFlag{
			Name:    "interval",
			Aliases: []string{"i"},
			Usage:   "Time between cycles",
		},
		&cli.StringFlag{
			Name:  "schedule",
			Usage: "Cron expression for cycles; overrides --interval",
		},
		&cli.StringFlag{
			Name:  "country",
			Usage: "Provider country code",
		},
		&cli.StringFlag{
			Name:  "language",
			Usage: "Provider language code",
		},
		&cli.BoolFlag{
			Name:  "once",
			Usage: "Run a single cycle per lane and exit",
		},
	}
}

func articleFlags() []cli.Flag {
	return append(laneFlags(), &cli.IntFlag{
		Name:    "page-size",
		Aliases: []string{"p"},
		Usage:   "Headlines requested per cycle (1-100)",
	})
}

func fetchCommand(pipeline core.Pipeline) cli.ActionFunc {
	return func(c *cli.Context) error {
		ctx := context.Background()

		cfg, err := config.Load(c.String("config"))
		if err != nil {
			return err
		}

		svc, err := newswire.NewService(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to start service: %w", err)
		}
		defer svc.Close()

		lane := laneFromFlags(c, svc.Lane(pipeline, c.Bool("once")))
		if err := core.ValidateLaneConfig(lane); err != nil {
			return err
		}

		orchestrator, err := svc.NewOrchestrator(lane)
		if err != nil {
			return err
		}

		report, err := orchestrator.Start(ctx, c.String("category"))
		if err != nil {
			return err
		}

		out := c.App.Writer
		for _, snapshot := range report.Lanes {
			snapshot.Report(out)
		}
		totals := report.Totals()
		totals.Report(out)
		if report.TimedOut {
			return cli.Exit("some lanes did not stop before the join timeout", 1)
		}
		return nil
	}
}

// laneFromFlags applies the command line overrides to the configured lane.
func laneFromFlags(c *cli.Context, lane core.LaneConfig) core.LaneConfig {
	lane.Category = c.String("category")
	if c.IsSet("interval") {
		lane.Interval = c.Duration("interval")
		lane.Schedule = ""
	}
	if c.IsSet("schedule") {
		lane.Schedule = c.String("schedule")
	}
	if c.IsSet("page-size") {
		lane.PageSize = c.Int("page-size")
	}
	if c.IsSet("country") {
		lane.Country = c.String("country")
	}
	if c.IsSet("language") {
		lane.Language = c.String("language")
	}
	return lane
}

func categoriesCommand(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	client, err := newsapi.NewClient(cfg.NewsAPI.APIKey, newsapi.WithBaseURL(cfg.NewsAPI.BaseURL))
	if err != nil {
		return err
	}
	categories, ok := client.Categories()
	if !ok {
		return fmt.Errorf("provider does not list categories")
	}
	for _, category := range categories {
		fmt.Fprintln(c.App.Writer, category)
	}
	return nil
}

func recentCommand(c *cli.Context) error {
	ctx := context.Background()

	limit := c.Int("limit")
	if limit < 1 {
		return fmt.Errorf("limit must be positive, got %d", limit)
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	svc, err := newswire.NewService(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer svc.Close()

	articles, err := svc.RecentArticles(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to load articles: %w", err)
	}

	out := c.App.Writer
	for _, a := range articles {
		terms := make([]string, 0, len(a.Keywords))
		for _, k := range a.Keywords {
			terms = append(terms, k.Term)
		}
		fmt.Fprintf(out, "%s  [%s] %s\n", a.PublishedAt.Format(time.RFC3339), a.Category, a.Title)
		fmt.Fprintf(out, "    %s (%s, %s)\n", a.URL, a.Source, a.Language)
		if len(terms) > 0 {
			fmt.Fprintf(out, "    keywords: %s\n", strings.Join(terms, ", "))
		}
	}
	return nil
}

func statusCommand(c *cli.Context) error {
	ctx := context.Background()

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	svc, err := newswire.NewService(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer svc.Close()

	status, err := svc.Status(ctx)
	if err != nil {
		return err
	}

	out := c.App.Writer
	fmt.Fprintf(out, "articles: %d\n", status.Articles)
	fmt.Fprintf(out, "sources:  %d\n", status.Sources)
	if len(status.Checkpoints) == 0 {
		fmt.Fprintln(out, "no lane has run yet")
		return nil
	}
	for _, cp := range status.Checkpoints {
		lastSuccess := "never"
		if !cp.LastSuccess.IsZero() {
			lastSuccess = cp.LastSuccess.Format(time.RFC3339)
		}
		fmt.Fprintf(out, "%-24s last attempt %s, last success %s, failures %d, stored %d, updated %d, skipped %d\n",
			cp.Lane,
			cp.LastAttempt.Format(time.RFC3339),
			lastSuccess,
			cp.ConsecutiveFailures,
			cp.Stored,
			cp.Updated,
			cp.Skipped)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch format := strings.ToLower(c.String("log-format")); format {
	case "text", "":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("invalid log format %q: must be text or json", format)
	}
	slog.SetDefault(slog.New(handler))

	return nil
}
