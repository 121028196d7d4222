// Package main is the solrdex CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/solrdex/internal/catalog"
	"github.com/hyperjump/solrdex/internal/cli"
	"github.com/hyperjump/solrdex/internal/config"
	bleveconn "github.com/hyperjump/solrdex/internal/connection/bleve"
	"github.com/hyperjump/solrdex/internal/connection/mock"
	solrconn "github.com/hyperjump/solrdex/internal/connection/solr"
	sqliteconn "github.com/hyperjump/solrdex/internal/connection/sqlite"
	"github.com/hyperjump/solrdex/internal/record"
	"github.com/hyperjump/solrdex/internal/server"
	"github.com/hyperjump/solrdex/internal/session"
	"github.com/hyperjump/solrdex/internal/watcher"
	"github.com/hyperjump/solrdex/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/solrdex/solrdex.yml"
	localConfigName   = "solrdex.yml"
)

// errUsage marks a command line that could not be parsed; usage has been printed.
var errUsage = errors.New("usage")

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}
	if err := run(os.Args[1], os.Args[2:], os.Stdout); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		}
		os.Exit(1)
	}
}

func run(command string, args []string, out io.Writer) error {
	switch command {
	case "server":
		return runServer(args)
	case "index":
		return runIndex(args, out)
	case "remove":
		return runRemove(args, out)
	case "remove-all":
		return runRemoveAll(args, out)
	case "commit":
		return runCommit(args, out)
	case "preview":
		return runPreview(args, out)
	case "types":
		return runTypes(args, out)
	case "check":
		return runCheck(args, out)
	case "version", "--version", "-v":
		fmt.Fprintf(out, "solrdex version %s\n", version)
		return nil
	case "help", "--help", "-h":
		printUsage(out)
		return nil
	}
	fmt.Fprintf(out, "Unknown command: %s\n", command)
	printUsage(out)
	return errUsage
}

// globalFlags are accepted by every command that touches the index.
type globalFlags struct {
	config string
	env    string
	debug  bool
}

func newFlagSet(name string) (*flag.FlagSet, *globalFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	g := &globalFlags{}
	fs.StringVar(&g.config, "config", defaultConfigPath, "config file path")
	fs.StringVar(&g.env, "env", "", "config environment (default $"+config.EnvVar+" or "+config.DefaultEnvironment+")")
	fs.BoolVar(&g.debug, "debug", false, "enable debug logging")
	return fs, g
}

// parse parses args, accepting flags after positional arguments too
// ("solrdex remove Post 1 -commit").
func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(reorderArgs(fs, args)); err != nil {
		return errUsage
	}
	return nil
}

// reorderArgs moves flags (and their values) ahead of positional arguments, keeping
// the relative order of each. The flag package stops at the first non-flag argument.
func reorderArgs(fs *flag.FlagSet, args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			return append(append(flags, "--"), append(positional, args[i+1:]...)...)
		}
		if len(a) < 2 || a[0] != '-' {
			positional = append(positional, a)
			continue
		}
		flags = append(flags, a)
		name := strings.TrimLeft(a, "-")
		if strings.Contains(name, "=") {
			continue
		}
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if b, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
			continue
		}
		if i+1 < len(args) {
			i++
			flags = append(flags, args[i])
		}
	}
	return append(flags, positional...)
}

// loadConfig loads the environment section from path. When path is the default and
// solrdex.yml exists in the current directory, that file is used instead; when neither
// exists the built-in defaults apply. Returns the path actually loaded.
func loadConfig(path, env string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			local := filepath.Join(cwd, localConfigName)
			if _, err := os.Stat(local); err == nil {
				path = local
			}
		}
		if path == defaultConfigPath {
			if _, err := os.Stat(path); os.IsNotExist(err) {
				path = ""
			}
		}
	}
	cfg, err := config.Load(path, config.ResolveEnvironment(env))
	if err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid config: %w", err)
	}
	return cfg, path, nil
}

// Components is everything a command needs to index.
type Components struct {
	Config  *config.Config
	Logger  *zap.Logger
	Catalog *catalog.Catalog
	Conn    session.Connection
	Session *session.Session
	close   func() error
}

type pending interface {
	Pending() int
}

// Close releases the backend connection and flushes the logger. Embedded backends lose
// operations that were never committed.
func (c *Components) Close() error {
	var err error
	if p, ok := c.Conn.(pending); ok && p.Pending() > 0 {
		c.Logger.Warn("discarding uncommitted operations; pass -commit to keep them",
			zap.Int("pending", p.Pending()))
	}
	if c.close != nil {
		err = c.close()
	}
	_ = c.Logger.Sync()
	return err
}

func setup(g *globalFlags) (*Components, error) {
	cfg, path, err := loadConfig(g.config, g.env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug || g.debug, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	logger.Debug("config loaded",
		zap.String("config_path", path),
		zap.String("environment", cfg.Environment),
		zap.String("backend", cfg.Backend))
	c, err := initializeComponents(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return c, nil
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	cat, err := catalog.Build(cfg.Types)
	if err != nil {
		return nil, fmt.Errorf("declare types: %w", err)
	}
	conn, closeFn, err := openConnection(cfg, cat, logger)
	if err != nil {
		return nil, err
	}
	return &Components{
		Config:  cfg,
		Logger:  logger,
		Catalog: cat,
		Conn:    conn,
		Session: session.New(cat.Assembler(), conn, session.WithLogger(logger)),
		close:   closeFn,
	}, nil
}

func openConnection(cfg *config.Config, cat *catalog.Catalog, logger *zap.Logger) (session.Connection, func() error, error) {
	switch cfg.Backend {
	case config.BackendSolr:
		target := cfg.WriteTarget()
		conn, err := solrconn.New(target.URL(), solrconn.WithTimeout(target.Timeout),
			solrconn.WithRetries(target.Retries), solrconn.WithLogger(logger))
		if err != nil {
			return nil, nil, fmt.Errorf("solr connection: %w", err)
		}
		return conn, nil, nil
	case config.BackendBleve:
		conn, err := bleveconn.Open(cfg.Bleve.IndexPath, cat.TextFields(), bleveconn.WithLogger(logger))
		if err != nil {
			return nil, nil, fmt.Errorf("bleve index: %w", err)
		}
		return conn, conn.Close, nil
	case config.BackendSQLite:
		conn, err := sqliteconn.Open(cfg.SQLite.DatabasePath, sqliteconn.WithLogger(logger))
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite store: %w", err)
		}
		return conn, conn.Close, nil
	case config.BackendDisabled:
		logger.Info("indexing disabled; all commands are discarded")
		return mock.Null{}, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

func runServer(args []string) error {
	fs, g := newFlagSet("server")
	if err := parse(fs, args); err != nil {
		return err
	}
	c, err := setup(g)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()
	logger := c.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	eg, egCtx := errgroup.WithContext(ctx)

	var watchSvc server.WatchService
	var w *watcher.Watcher
	if len(c.Config.Watch.Directories) > 0 {
		spool := watcher.NewSpool(c.Session, c.Config.CommitAfterRequest(), c.Config.CommitAfterDeleteRequest(), logger)
		w = watcher.New(c.Config.Watch, spool, watcher.WithLogger(logger))
		if err := w.Start(egCtx); err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		w.SyncExistingFiles()
		watchSvc = w
	}

	srv := server.NewServer(c.Session, c.Catalog, c.Config, logger, watchSvc)
	eg.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-egCtx.Done()
		logger.Info("Shutting down...")
		if w != nil {
			w.Stop()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})
	return eg.Wait()
}

// readRecords decodes the records in each file; "-" reads JSON from stdin.
func readRecords(paths []string, stdin io.Reader) ([]any, error) {
	var out []any
	for _, path := range paths {
		var records []*record.Record
		var err error
		if path == "-" {
			records, err = record.Decode(stdin, record.JSON)
		} else {
			records, err = record.ReadFile(path)
		}
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			out = append(out, r)
		}
	}
	return out, nil
}

func runIndex(args []string, out io.Writer) error {
	fs, g := newFlagSet("index")
	commit := fs.Bool("commit", false, "commit after indexing")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: solrdex index [flags] <file|->...\n\n")
		fs.PrintDefaults()
	}
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}
	instances, err := readRecords(fs.Args(), os.Stdin)
	if err != nil {
		return err
	}
	c, err := setup(g)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	index := c.Session.Index
	if *commit {
		index = c.Session.IndexAndCommit
	}
	if err := index(context.Background(), instances...); err != nil {
		return err
	}
	fmt.Fprintf(out, "indexed %d record(s)%s\n", len(instances), committedSuffix(*commit))
	return nil
}

func runRemove(args []string, out io.Writer) error {
	fs, g := newFlagSet("remove")
	commit := fs.Bool("commit", false, "commit after removing")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: solrdex remove [flags] <type> <id>\n\n")
		fs.PrintDefaults()
	}
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return errUsage
	}
	c, err := setup(g)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	rec := &record.Record{Type: fs.Arg(0), ID: fs.Arg(1)}
	remove := c.Session.Remove
	if *commit {
		remove = c.Session.RemoveAndCommit
	}
	if err := remove(context.Background(), rec); err != nil {
		return err
	}
	fmt.Fprintf(out, "removed %s%s\n", rec, committedSuffix(*commit))
	return nil
}

func runRemoveAll(args []string, out io.Writer) error {
	fs, g := newFlagSet("remove-all")
	commit := fs.Bool("commit", false, "commit after removing")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: solrdex remove-all [flags] [type]\n\n")
		fs.PrintDefaults()
	}
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return errUsage
	}
	c, err := setup(g)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	typeName := fs.Arg(0)
	removeAll := c.Session.RemoveAll
	if *commit {
		removeAll = c.Session.RemoveAllAndCommit
	}
	if err := removeAll(context.Background(), typeName); err != nil {
		return err
	}
	what := "all documents"
	if typeName != "" {
		what = "all " + typeName + " documents"
	}
	fmt.Fprintf(out, "removed %s%s\n", what, committedSuffix(*commit))
	return nil
}

func runCommit(args []string, out io.Writer) error {
	fs, g := newFlagSet("commit")
	if err := parse(fs, args); err != nil {
		return err
	}
	c, err := setup(g)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()
	if err := c.Session.Commit(context.Background()); err != nil {
		return err
	}
	fmt.Fprintln(out, "committed")
	return nil
}

func runPreview(args []string, out io.Writer) error {
	fs, g := newFlagSet("preview")
	output := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: solrdex preview [flags] <file|->...\n\n")
		fs.PrintDefaults()
	}
	if err := parse(fs, args); err != nil {
		return err
	}
	format, err := cli.ParseFormat(*output)
	if err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}
	instances, err := readRecords(fs.Args(), os.Stdin)
	if err != nil {
		return err
	}
	c, err := setup(g)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	docs, err := c.Session.Preview(instances...)
	if err != nil {
		return err
	}
	return cli.WritePreview(out, docs, format)
}

func runTypes(args []string, out io.Writer) error {
	fs, g := newFlagSet("types")
	output := fs.String("output", "text", "output format: text or json")
	if err := parse(fs, args); err != nil {
		return err
	}
	format, err := cli.ParseFormat(*output)
	if err != nil {
		return err
	}
	c, err := setup(g)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()
	return cli.WriteTypes(out, c.Catalog.Types(), format)
}

type pinger interface {
	Ping(ctx context.Context) error
}

func runCheck(args []string, out io.Writer) error {
	fs, g := newFlagSet("check")
	if err := parse(fs, args); err != nil {
		return err
	}
	c, err := setup(g)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	fmt.Fprintf(out, "environment: %s\n", c.Config.Environment)
	fmt.Fprintf(out, "backend:     %s\n", c.Config.Backend)
	fmt.Fprintf(out, "types:       %d\n", len(c.Catalog.Types()))
	if p, ok := c.Conn.(pinger); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("ping %s: %w", c.Config.WriteTarget().URL(), err)
		}
		fmt.Fprintf(out, "solr:        %s ok\n", c.Config.WriteTarget().URL())
	}
	return nil
}

func committedSuffix(commit bool) string {
	if commit {
		return " and committed"
	}
	return ""
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `solrdex - Typed document indexing for Solr

Usage:
  solrdex server [flags]                      Start the HTTP API (and spool watcher if configured)
  solrdex index [-commit] <file|->...         Index record files (JSON or YAML)
  solrdex remove [-commit] <type> <id>        Remove one document
  solrdex remove-all [-commit] [type]         Remove every document, or every document of a type
  solrdex commit                              Commit pending changes
  solrdex preview [-output fmt] <file|->...   Show the documents records would produce
  solrdex types [-output fmt]                 List configured types and their fields
  solrdex check                               Validate config and types; ping Solr
  solrdex version                             Show version
  solrdex help                                Show this help

Common Flags:
  -config string    Config file path (default: /usr/local/etc/solrdex/solrdex.yml, or ./solrdex.yml)
  -env string       Config environment (default: $SOLRDEX_ENV or development)
  -debug            Enable debug logging

Examples:
  solrdex index -commit posts.json
  cat post.json | solrdex preview -
  solrdex remove Post 1
  solrdex remove-all -commit Comment
  SOLRDEX_ENV=production solrdex check`)
}
