package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	twitter "github.com/anatolykoptev/go-tweetharvest"
	"github.com/anatolykoptev/go-tweetharvest/collect"
	"github.com/anatolykoptev/go-tweetharvest/internal/config"
)

const dateLayout = "2006-01-02"

var (
	collectAccounts []string
	collectSince    string
	collectUntil    string
	collectSessions []string
	collectParallel bool
	collectFormat   string
	collectLanguage string
	collectProduct  string
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect posts for a set of accounts",
	Long: `Collect posts authored by each account, optionally restricted to a date
window. --since and --until are inclusive calendar dates (UTC) and must be
given together.

With several --session files and --parallel, accounts are spread across the
sessions and collected concurrently, one goroutine per session.

Interrupting the run (Ctrl-C) prints whatever was collected so far.

Examples:
  tweetharvest collect --accounts bmkg_semarang,infoBMKG
  tweetharvest collect --accounts bmkg_semarang --since 2024-01-01 --until 2024-01-31
  tweetharvest collect --accounts a,b,c,d --session cookies_1.json --session cookies_2.json --parallel
  tweetharvest collect --accounts bmkg_semarang --format json > posts.json`,
	Args: cobra.NoArgs,
	RunE: runCollect,
}

func init() {
	f := collectCmd.Flags()
	f.StringSliceVarP(&collectAccounts, "accounts", "a", nil, "accounts to collect (comma separated)")
	f.StringVar(&collectSince, "since", "", "first day to include (YYYY-MM-DD)")
	f.StringVar(&collectUntil, "until", "", "last day to include (YYYY-MM-DD)")
	f.StringArrayVarP(&collectSessions, "session", "s", nil, "cookie file of a session (repeatable)")
	f.BoolVar(&collectParallel, "parallel", false, "collect concurrently, one session per account group")
	f.StringVarP(&collectFormat, "format", "f", "", "output format: text, json or auto")
	f.StringVar(&collectLanguage, "lang", "", "language filter of the search")
	f.StringVar(&collectProduct, "product", "", "search tab: Top or Latest")
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	r, err := parseDateRange(collectSince, collectUntil)
	if err != nil {
		return err
	}

	logger, cleanup := config.SetupLogger(cfg.Logging.File, cfg.LogLevel())
	defer cleanup()
	slog.SetDefault(logger)

	var calls apiCalls
	client := twitter.NewClient(cfg.Twitter(calls.record))
	sessions := openSessions(client, cfg.Sessions.Files, logger)
	if len(sessions) == 0 {
		return errors.New("no usable session: check the cookie files")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := collect.NewEngine(cfg.Collect(logger))
	var run *collect.CollectionRun
	if cfg.Sessions.Parallel && len(sessions) > 1 {
		run = engine.RunConcurrent(ctx, r, assignAccounts(cfg.Search.Accounts, sessions))
	} else {
		run = engine.Run(ctx, cfg.Search.Accounts, r, sessions[0])
	}

	if ctx.Err() != nil {
		logger.Warn("interrupted, showing partial results")
	}
	logSummary(logger, run, sessions, &calls)

	out := cmd.OutOrStdout()
	switch outputFormat(cfg.Output.Format, out) {
	case "json":
		err = renderJSON(out, run)
	default:
		err = renderText(out, run)
	}
	if err != nil {
		return fmt.Errorf("render results: %w", err)
	}

	if failed := run.Failed(); len(failed) > 0 && len(failed) == len(run.Accounts) && ctx.Err() == nil {
		return fmt.Errorf("collection failed for all %d accounts", len(failed))
	}
	return nil
}

// outputFormat resolves "auto": text when w is a terminal, json otherwise.
func outputFormat(format string, w io.Writer) string {
	if format != "auto" {
		return format
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "text"
	}
	return "json"
}

// loadConfig layers explicitly set flags over the file and environment config.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("accounts") {
		cfg.Search.Accounts = collectAccounts
	}
	if flags.Changed("session") {
		cfg.Sessions.Files = collectSessions
	}
	if flags.Changed("parallel") {
		cfg.Sessions.Parallel = collectParallel
	}
	if flags.Changed("format") {
		cfg.Output.Format = collectFormat
	}
	if flags.Changed("lang") {
		cfg.Search.Language = collectLanguage
	}
	if flags.Changed("product") {
		cfg.Search.Product = collectProduct
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if flags.Changed("log-file") {
		cfg.Logging.File = logFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// parseDateRange turns inclusive calendar dates into the half-open window the
// search expects: until is advanced by one day.
func parseDateRange(since, until string) (collect.DateRange, error) {
	if since == "" && until == "" {
		return collect.DateRange{}, nil
	}
	if since == "" || until == "" {
		return collect.DateRange{}, errors.New("--since and --until must be given together")
	}
	start, err := time.ParseInLocation(dateLayout, since, time.UTC)
	if err != nil {
		return collect.DateRange{}, fmt.Errorf("invalid --since: %w", err)
	}
	last, err := time.ParseInLocation(dateLayout, until, time.UTC)
	if err != nil {
		return collect.DateRange{}, fmt.Errorf("invalid --until: %w", err)
	}
	if last.Before(start) {
		return collect.DateRange{}, fmt.Errorf("--until %s is before --since %s", until, since)
	}
	return collect.DateRange{Start: start, End: last.AddDate(0, 0, 1)}, nil
}

// openSessions loads every cookie file, skipping the ones that fail.
func openSessions(client *twitter.Client, files []string, logger *slog.Logger) []*twitter.Session {
	var sessions []*twitter.Session
	for _, path := range files {
		s, err := client.OpenSession(path)
		if err != nil {
			logger.Error("skip session", slog.String("file", path), slog.Any("error", err))
			continue
		}
		sessions = append(sessions, s)
	}
	return sessions
}

// assignAccounts deals accounts round-robin over the sessions. Sessions that
// would receive no account are left out.
func assignAccounts(accounts []string, sessions []*twitter.Session) []collect.Assignment {
	n := min(len(sessions), len(accounts))
	assignments := make([]collect.Assignment, n)
	for i := range assignments {
		assignments[i].Session = sessions[i]
	}
	for i, acc := range accounts {
		a := &assignments[i%n]
		a.Accounts = append(a.Accounts, acc)
	}
	return assignments
}

// apiCalls counts upstream requests by outcome.
type apiCalls struct {
	ok, rateLimited, failed atomic.Int64
}

func (c *apiCalls) record(_ string, success, rateLimited bool) {
	switch {
	case success:
		c.ok.Add(1)
	case rateLimited:
		c.rateLimited.Add(1)
	default:
		c.failed.Add(1)
	}
}

func logSummary(logger *slog.Logger, run *collect.CollectionRun, sessions []*twitter.Session, calls *apiCalls) {
	logger.Info("upstream requests",
		slog.String("run", run.ID),
		slog.Int64("requests_ok", calls.ok.Load()),
		slog.Int64("requests_rate_limited", calls.rateLimited.Load()),
		slog.Int64("requests_failed", calls.failed.Load()))
	for _, s := range sessions {
		total, failed, consec := s.Stats()
		logger.Debug("session health",
			slog.String("session", s.Name),
			slog.Int("total", total),
			slog.Int("failed", failed),
			slog.Int("consec", consec))
	}
}
