package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/docchat"
	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/ai/mock"
	"github.com/poiesic/docchat/chat"
	"github.com/poiesic/docchat/ingestion"
	"github.com/poiesic/docchat/reembed"
	"github.com/poiesic/docchat/scheduler"
	"github.com/poiesic/docchat/vectorstore"
	"github.com/poiesic/docchat/web"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

// openWorkspace builds the AI provider and the workspace. With dummy set
// the mock provider stands in for the configured one.
func openWorkspace(c *cli.Context, dummy bool) (*docchat.Workspace, error) {
	cfg := configFrom(c)
	logger := slog.Default()

	var (
		provider ai.AIProvider
		err      error
	)
	if dummy {
		provider = mock.NewMockProvider()
	} else {
		provider, err = docchat.NewAIProvider(c.Context, cfg.AI(), logger)
		if err != nil {
			return nil, err
		}
	}

	ws, err := docchat.NewWorkspace(cfg, provider, docchat.WithLogger(logger))
	if err != nil {
		provider.Close()
		return nil, err
	}
	return ws, nil
}

func ingestCommand(c *cli.Context) error {
	ws, err := openWorkspace(c, false)
	if err != nil {
		return err
	}
	defer ws.Close()

	pipeline, err := ws.NewPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Release()

	out := c.App.Writer
	if source := c.String("source"); source != "" {
		result, err := pipeline.Run(c.Context, source)
		if result != nil {
			printResult(out, result)
		}
		return err
	}

	summary, err := pipeline.RunAll(c.Context, ws.Registry())
	if err != nil {
		return err
	}
	for _, r := range summary.Results {
		printResult(out, r)
	}
	fmt.Fprintf(out, "%d ingested, %d unchanged, %d failed\n",
		summary.Succeeded, summary.Skipped, summary.Failed)
	return summary.Err()
}

func printResult(out io.Writer, r *ingestion.SourceResult) {
	switch {
	case r.Err != nil:
		fmt.Fprintf(out, "%s: failed: %v\n", r.Source, r.Err)
	case r.NoNewContent():
		fmt.Fprintf(out, "%s: no new content (%d files already ingested)\n", r.Source, r.Skipped)
	default:
		fmt.Fprintf(out, "%s: %d documents, %d chunks, %d moved in %s\n",
			r.Source, r.Documents, r.Chunks, r.Moved, r.Duration.Round(time.Millisecond))
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(out, "  warning: %v\n", w)
	}
}

func chatCommand(c *cli.Context) error {
	dummy := c.Bool("dummy")
	ws, err := openWorkspace(c, dummy)
	if err != nil {
		return err
	}
	defer ws.Close()

	source := c.String("source")
	svc, err := ws.NewChatService(c.Context, source, chat.WithDummy(dummy))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Chatting with %q. Type \"exit\" to quit.\n", source)
	return runREPL(c.Context, svc, c.App.Reader, c.App.Writer)
}

func serveCommand(c *cli.Context) error {
	cfg := configFrom(c)
	dummy := c.Bool("dummy")
	ws, err := openWorkspace(c, dummy)
	if err != nil {
		return err
	}
	defer ws.Close()

	logger := slog.Default()
	srv, err := web.New(ws,
		web.WithLogger(logger),
		web.WithSessionTTL(cfg.SessionTTL),
		web.WithDummy(dummy))
	if err != nil {
		return err
	}

	addr := cfg.HTTPAddr
	if c.IsSet("addr") {
		addr = c.String("addr")
	}
	schedule := cfg.IngestSchedule
	if c.IsSet("schedule") {
		schedule = c.String("schedule")
	}

	g, ctx := errgroup.WithContext(c.Context)

	if schedule != "" || c.Bool("watch") {
		pipeline, err := ws.NewPipeline()
		if err != nil {
			return err
		}
		defer pipeline.Release()

		sched, err := scheduler.New(pipeline, ws.Registry(), scheduler.WithLogger(logger))
		if err != nil {
			return err
		}
		if schedule != "" {
			if err := sched.Start(schedule); err != nil {
				return err
			}
			defer sched.Stop()
			logger.Info("scheduled ingestion", "schedule", schedule, "next", sched.Next())
		}
		if c.Bool("watch") {
			watcher, err := sched.Watch(cfg.DataDir, scheduler.WithWatcherLogger(logger))
			if err != nil {
				return err
			}
			g.Go(func() error {
				return watcher.Run(ctx)
			})
		}
	}

	g.Go(func() error {
		return srv.ListenAndServe(ctx, addr)
	})
	return g.Wait()
}

func reembedCommand(c *cli.Context) error {
	ws, err := openWorkspace(c, false)
	if err != nil {
		return err
	}
	defer ws.Close()

	cfg := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
		Resume:         c.Bool("resume"),
	}
	r, err := ws.NewReembedder(c.Context, c.String("source"), cfg, c.App.Writer)
	if err != nil {
		return err
	}
	_, err = r.Run(c.Context)
	return err
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return errors.New("search requires a query")
	}

	ws, err := openWorkspace(c, false)
	if err != nil {
		return err
	}
	defer ws.Close()

	k := ws.Config().RetrievalK
	if c.IsSet("k") {
		k = c.Int("k")
	}

	opts := []vectorstore.Option{
		vectorstore.WithMonitor(&vectorstore.LogMonitor{Logger: slog.Default()}),
	}
	if boost := c.Float64("keyword-boost"); boost > 0 {
		opts = append(opts, vectorstore.WithKeywordBoost(float32(boost)))
	}
	store, err := ws.NewSearchStore(c.Context, c.String("source"), opts...)
	if err != nil {
		return err
	}

	results, err := store.Search(c.Context, query, k, float32(c.Float64("min-similarity")), nil)
	if err != nil {
		return err
	}
	return printHits(c.App.Writer, results)
}

func sourcesCommand(c *cli.Context) error {
	names, err := docchat.NewRegistry(configFrom(c)).Sources(c.Context)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(c.App.Writer, "No data sources found")
		return nil
	}
	for _, name := range names {
		fmt.Fprintln(c.App.Writer, name)
	}
	return nil
}

var _ web.Backend = (*docchat.Workspace)(nil)
