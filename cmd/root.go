package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"seqbench/internal/banner"
	"seqbench/internal/bench"
	"seqbench/internal/config"
	"seqbench/internal/report"
	"seqbench/internal/target"
	"seqbench/internal/transport"
	"seqbench/internal/tui/live"
)

// errReported means the failure was already printed; only the exit code is left.
var errReported = errors.New("reported")

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "seqbench",
	Short: "seqbench - sequential HTTP benchmarking",
	Long: `
seqbench sends requests to one URL, one at a time over a single reused
connection, and reports throughput and latency percentiles.

It runs in two modes:
1. Single shot (--duration 0): one request, full response dump
2. Benchmark (--duration N): repeat until the time or request limit is hit`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func Execute() {
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Println(banner.GetString())
		cmd.Usage()
	})

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(dummyCmd)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.seqbench.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Debug logging on stderr")

	registerRunFlags(rootCmd.Flags())

	viper.BindPFlags(rootCmd.Flags())
	viper.BindPFlags(rootCmd.PersistentFlags())
}

// registerRunFlags defines the benchmark flags. Names double as config keys.
func registerRunFlags(f *pflag.FlagSet) {
	f.StringP("url", "u", "", "Target URL (required)")
	f.StringP("method", "X", "GET", "HTTP method")
	f.StringP("body", "b", "", "Request body; sets Content-Length and Content-Type")
	f.String("content-type", bench.DefaultContentType, "Content-Type sent with --body")
	f.BoolP("insecure", "k", false, "Skip TLS certificate verification")
	f.IntP("duration", "d", 0, "Benchmark duration in seconds (0 = single request)")
	f.Uint64P("requests", "n", 0, "Stop after this many requests (0 = no limit)")
	f.StringArrayP("header", "H", nil, "Request header \"Name: Value\" (repeatable)")
	f.Int("timeout", 0, "Per-request timeout in seconds (0 = none)")
	f.StringP("out", "o", "", "Write <prefix>.csv and <prefix>_summary.json after the run")
	f.Bool("tui", false, "Show a live dashboard while benchmarking")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigType("yaml")
			viper.SetConfigName(".seqbench")
		}
	}
	bindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintln(os.Stderr, "Warning: config file:", err)
		}
	}
}

// bindEnv maps SEQBENCH_CONTENT_TYPE and friends onto config keys.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("SEQBENCH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func run(cmd *cobra.Command, _ []string) error {
	opts := config.Load(viper.GetViper())
	logger := newLogger(os.Stderr, opts.Verbose)

	plan, err := opts.Plan()
	if err != nil {
		var cfgErr *target.ConfigError
		if errors.As(err, &cfgErr) {
			fmt.Fprintln(os.Stderr, "Configuration error:", cfgErr.Msg)
			return errReported
		}
		return err
	}
	for _, line := range plan.Dropped {
		logger.Warn("Ignoring header without ':' separator", "header", line)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn := transport.NewHTTPConnector(plan.Spec.Peer)
	defer conn.CloseIdle()
	exec := bench.NewExecutor(conn, plan.Timeout)

	logger.Debug("Plan ready",
		"mode", plan.Mode,
		"addr", plan.Spec.Peer.Addr(),
		"tls", plan.Spec.Peer.TLS,
		"timeout", plan.Timeout,
	)

	if plan.Mode == config.ModeSingle {
		if err := bench.RunSingle(ctx, exec, plan.Spec, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
			return errReported
		}
		return nil
	}

	return runBenchmark(ctx, opts, plan, exec, logger)
}

func runBenchmark(ctx context.Context, opts config.Options, plan *config.Plan, exec *bench.Executor, logger *slog.Logger) error {
	info := report.RunInfo{
		ID:      uuid.New().String(),
		URL:     plan.Target.URL,
		Method:  plan.Spec.Method,
		HasBody: plan.Spec.HasBody,
		Policy:  plan.Policy,
	}

	var recorder *report.Recorder
	loop := &bench.Loop{
		Requester: exec,
		Spec:      plan.Spec,
		Policy:    plan.Policy,
		Logger:    logger,
	}
	if opts.OutPrefix != "" {
		recorder = &report.Recorder{}
		loop.OnOutcome = recorder.Record
	}

	started := time.Now()
	var stats *bench.Stats
	if opts.TUI {
		stats = runDashboard(ctx, loop, info)
	} else {
		report.WriteRunHeader(os.Stdout, info)
		loop.Progress = report.NewProgressPrinter(os.Stdout)
		stats = loop.Run(ctx)
		fmt.Println()
	}
	report.WriteSummary(os.Stdout, stats)

	if recorder != nil {
		sum := report.NewSummary(info, started, stats)
		if err := report.ExportRun(opts.OutPrefix, sum, recorder.Attempts); err != nil {
			logger.Error("Export failed", "prefix", opts.OutPrefix, "err", err)
			return errReported
		}
		logger.Info("Results exported", "csv", opts.OutPrefix+".csv", "summary", opts.OutPrefix+"_summary.json")
	}
	return nil
}

// runDashboard drives the loop behind the live view. Request failures show up
// on the dashboard instead of the log. A signal stops the loop and closes the
// view; <q> stops the loop and leaves the summary up until pressed again.
func runDashboard(ctx context.Context, loop *bench.Loop, info report.RunInfo) *bench.Stats {
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(chan bench.Snapshot, 100)
	loop.Updates = updates
	loop.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	m := live.NewModel(info.URL, info.Policy, updates, cancel)
	p := tea.NewProgram(m, tea.WithAltScreen())

	done := make(chan *bench.Stats, 1)
	go func() {
		stats := loop.Run(loopCtx)
		var buf bytes.Buffer
		report.WriteSummary(&buf, stats)
		p.Send(live.DoneMsg{Summary: buf.String()})
		done <- stats
	}()
	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Dashboard failed: %v\n", err)
	}
	cancel()
	return <-done
}
