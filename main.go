package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nijaru/yt-search/cache"
	"github.com/nijaru/yt-search/config"
	"github.com/nijaru/yt-search/db"
	"github.com/nijaru/yt-search/fetch"
	"github.com/nijaru/yt-search/handlers"
	"github.com/nijaru/yt-search/logger"
	"github.com/nijaru/yt-search/middleware"
	"github.com/nijaru/yt-search/models"
	"github.com/nijaru/yt-search/parser"
	"github.com/nijaru/yt-search/render"
	"github.com/nijaru/yt-search/search"
	"github.com/nijaru/yt-search/storage"
	"github.com/nijaru/yt-search/store"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type options struct {
	query  string
	pages  int
	prior  *parser.Continuation
	format render.Format
	serve  bool
}

// parseFlags reads the command line. Flag defaults come from cfg, and the
// parsed values are written back into it.
func parseFlags(args []string, cfg *config.Config, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("yt-search", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: yt-search [flags] [query...]")
		fs.PrintDefaults()
	}

	var (
		query    = fs.String("q", "", "search query (or pass it as arguments)")
		pages    = fs.Int("pages", cfg.Search.MaxPages, "maximum number of result pages to fetch")
		mobile   = fs.Bool("mobile", cfg.Search.Mobile, "use the mobile site")
		recent   = fs.Bool("recent", cfg.Search.SortByRecent, "sort results by upload date")
		ctoken   = fs.String("ctoken", "", "continuation token to resume from")
		itct     = fs.String("itct", "", "click tracking params to resume from")
		format   = fs.String("format", cfg.Output.Format, "console output format: text, markdown or json")
		out      = fs.String("out", cfg.Output.MarkdownPath, "also write a markdown report to this file")
		archive  = fs.String("archive", cfg.Output.ArchivePath, "archive the session into this SQLite database")
		dumpJSON = fs.String("dump-json", cfg.Output.DumpJSONDir, "write each page's extracted JSON into this directory")
		serve    = fs.Bool("serve", false, "run the HTTP server instead of a single search")
	)
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	cfg.Search.Mobile = *mobile
	cfg.Search.SortByRecent = *recent
	cfg.Output.Format = *format
	cfg.Output.MarkdownPath = *out
	cfg.Output.ArchivePath = *archive
	cfg.Output.DumpJSONDir = *dumpJSON

	opts := options{query: *query, pages: *pages, serve: *serve}
	if opts.query == "" {
		opts.query = strings.Join(fs.Args(), " ")
	}
	if *pages < 1 {
		return options{}, errors.New("-pages must be at least 1")
	}
	if *ctoken != "" || *itct != "" {
		opts.prior = &parser.Continuation{Token: *ctoken, ClickTrackingParams: *itct}
	}

	f, err := render.ParseFormat(*format)
	if err != nil {
		return options{}, err
	}
	opts.format = f

	if !opts.serve && strings.TrimSpace(opts.query) == "" {
		fs.Usage()
		return options{}, errors.New("a search query is required")
	}
	return opts, nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	opts, err := parseFlags(args, cfg, os.Stderr)
	if err != nil {
		return err
	}

	logCloser, err := logger.Setup(cfg.Log)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sinks []handlers.Sink
	if cfg.Output.ArchivePath != "" {
		archive, err := db.Open(cfg.Output.ArchivePath)
		if err != nil {
			return err
		}
		defer func() {
			if err := archive.Close(); err != nil {
				logrus.WithError(err).Error("Failed to close archive database")
			}
		}()
		sinks = append(sinks, archive)
	}
	if cfg.Spaces.Enabled() {
		spaces, err := storage.NewSpacesClient(ctx, cfg.Spaces)
		if err != nil {
			return err
		}
		sinks = append(sinks, spaces)
	}

	var searcher handlers.Searcher = search.NewSearcher(fetch.NewClient(cfg.Fetch), cfg.Search).
		WithDumpDir(cfg.Output.DumpJSONDir)
	if cfg.Cache.Enabled() {
		rdb := cache.NewClient(cfg.Cache)
		defer rdb.Close()
		if err := cache.Ping(ctx, rdb); err != nil {
			return err
		}
		searcher = cache.NewSearcher(searcher, rdb, cfg.Cache.TTL, cfg.Search)
	}

	if opts.serve {
		return serve(ctx, cfg, handlers.New(searcher, cfg.Search.MaxPages, sinks...))
	}
	return runSearch(ctx, cfg, opts, searcher, sinks, os.Stdout)
}

func runSearch(ctx context.Context, cfg *config.Config, opts options, searcher handlers.Searcher, sinks []handlers.Sink, stdout io.Writer) error {
	st := store.New()
	sum, err := searcher.Search(ctx, search.Request{Query: opts.query, Pages: opts.pages, Prior: opts.prior}, st)
	if err != nil {
		return err
	}

	videos := st.All()
	if sum.Estimated == 0 && len(videos) == 0 {
		logrus.WithField("query", opts.query).Info("No results found")
	}

	if err := render.Write(stdout, opts.format, videos); err != nil {
		return errors.Wrap(err, "error writing report")
	}

	if cfg.Output.MarkdownPath != "" {
		if err := render.WriteMarkdownFile(cfg.Output.MarkdownPath, videos); err != nil {
			return err
		}
	}

	session := models.Session{ID: sum.SessionID, Query: opts.query, Estimated: sum.Estimated, Pages: sum.Pages}
	for _, sink := range sinks {
		if err := sink.SaveSession(ctx, session, videos); err != nil {
			return err
		}
	}

	if sum.Next != nil {
		logrus.WithFields(logrus.Fields{
			"ctoken": sum.Next.Token,
			"itct":   sum.Next.ClickTrackingParams,
		}).Info("More results available, resume with -ctoken and -itct")
	}
	return nil
}

func serve(ctx context.Context, cfg *config.Config, h *handlers.Handler) error {
	handler := middleware.Chain(h.Routes(),
		middleware.LoggingMiddleware,
		middleware.RateLimit(cfg.Server.RateLimit, cfg.Server.RateLimitInterval),
		middleware.Timeout(cfg.Server.RequestTimeout),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.WithField("port", cfg.Server.Port).Info("Listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- errors.Wrapf(err, "could not listen on :%s", cfg.Server.Port)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logrus.Info("Shutting down the server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "server shutdown")
	}
	return nil
}
