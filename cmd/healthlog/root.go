package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"healthlog/internal/blob"
	"healthlog/internal/config"
	"healthlog/internal/docstore"
	"healthlog/internal/docsync"
	"healthlog/internal/handles"
	"healthlog/internal/logging"
)

type rootFlags struct {
	configFile  string
	envFile     string
	trace       bool
	metricsFile string
	interactive bool
}

// app is the wiring shared by every subcommand. It is built once the flags
// are parsed and torn down after the command finishes.
type app struct {
	flags   rootFlags
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	cfg     config.Config
	adapter *docstore.BlobAdapter
	ws      *docsync.Workspace
	now     func() time.Time

	registry *prometheus.Registry
	expvar   *docsync.ExpvarMetricsRecorder
	closers  []io.Closer
}

// newRootCmd builds the command tree. The returned cleanup releases whatever
// the command opened and must run even when the command fails.
func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) (*cobra.Command, func() error) {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr, now: func() time.Time { return time.Now().UTC() }}
	root := &cobra.Command{
		Use:   "healthlog",
		Short: "Shared household health log",
		Long: `healthlog keeps a household's illness episodes, temperatures, doses and
symptoms in two JSON documents on a shared file store. Every device works on
its own copy and saves with a conditional write; when another device saved
first, both versions are merged record by record and written once more.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{msg: err.Error()}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configFile, "config", "", "config file (yaml, toml or json)")
	pf.StringVar(&a.flags.envFile, "env-file", ".env", "dotenv file with HEALTHLOG_* settings")
	pf.BoolVar(&a.flags.trace, "trace", false, "write a JSON trace line per sync operation to stderr")
	pf.StringVar(&a.flags.metricsFile, "metrics-file", "", "write sync metrics on exit (.json for expvar, otherwise prometheus text)")
	pf.BoolVar(&a.flags.interactive, "interactive", false, "prompt for files and folders instead of using flags")

	root.AddCommand(
		newInitCmd(a),
		newStatusCmd(a),
		newSyncCmd(a),
		newMembersCmd(a),
		newEpisodeCmd(a),
		newTempCmd(a),
		newMedCmd(a),
		newSymptomCmd(a),
		newCatalogCmd(a),
		newCourseCmd(a),
		newScheduleCmd(a),
		newForgetCmd(a),
	)
	return root, a.teardown
}

func (a *app) setup(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(config.Options{ConfigFile: a.flags.configFile, EnvFile: a.flags.envFile})
	if err != nil {
		return usageError{msg: err.Error()}
	}
	a.cfg = cfg

	logger, logCloser, err := logging.New(cfg.Log, a.stderr)
	if err != nil {
		return usageError{msg: err.Error()}
	}
	a.closers = append(a.closers, logCloser)

	store, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}
	hs, err := handles.Open(ctx, cfg.Handles)
	if err != nil {
		return fmt.Errorf("open handle store: %w", err)
	}
	a.closers = append(a.closers, hs)

	var picker docstore.Picker
	if a.flags.interactive {
		picker = huhPicker{in: a.stdin, out: a.stderr}
	}
	a.adapter = docstore.NewBlobAdapter(store, docstore.NewSession(picker, docstore.StaticIdentity(cfg.UserEmail), docstore.WithSessionLogger(logger)))

	a.registry = prometheus.NewRegistry()
	prom, err := docsync.NewPrometheusRecorder(a.registry)
	if err != nil {
		return err
	}
	a.expvar = docsync.NewExpvarMetricsRecorder("")
	opts := []docsync.Option{
		docsync.WithLogger(logger),
		docsync.WithMetricsRecorder(docsync.MultiRecorder{prom, a.expvar}),
	}
	if a.flags.trace {
		opts = append(opts, docsync.WithTracer(docsync.NewJSONTracer(a.stderr)))
	}
	a.ws = docsync.NewWorkspace(a.adapter, hs, opts...)
	logger.Debug("healthlog configured", "blob_driver", string(store.Driver()), "handles_driver", string(cfg.Handles.Driver))
	return nil
}

func (a *app) teardown() error {
	var errs []error
	if a.flags.metricsFile != "" && a.registry != nil {
		errs = append(errs, a.writeMetrics(a.flags.metricsFile))
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *app) writeMetrics(path string) error {
	if strings.HasSuffix(path, ".json") {
		data, err := json.MarshalIndent(a.expvar.Snapshot(), "", "  ")
		if err != nil {
			return err
		}
		return os.WriteFile(path, data, 0o600)
	}
	return prometheus.WriteToTextfile(path, a.registry)
}

// open loads the remembered documents before a command reads or edits them.
func (a *app) open(ctx context.Context) (docsync.Snapshot, error) {
	if err := a.ws.Open(ctx); err != nil {
		return docsync.Snapshot{}, err
	}
	return a.ws.Snapshot(), nil
}

// saved reports the outcome of a commit on stdout.
func (a *app) saved(what string, merged bool) {
	if merged {
		a.printf("%s (merged with changes from another device)\n", what)
		return
	}
	a.printf("%s\n", what)
}

func (a *app) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.stdout, format, args...)
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usagef("%s expects %d argument(s), got %d", cmd.CommandPath(), n, len(args))
		}
		return nil
	}
}

func minArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return usagef("%s expects at least %d argument(s)", cmd.CommandPath(), n)
		}
		return nil
	}
}
