package main

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/wudi/ocrdesk/artifacts"
	"github.com/wudi/ocrdesk/client"
	"github.com/wudi/ocrdesk/config"
	"github.com/wudi/ocrdesk/observability"
	"github.com/wudi/ocrdesk/persist"
	"github.com/wudi/ocrdesk/reconcile"
)

// app carries what every subcommand needs once flags and config are parsed.
type app struct {
	configPath string
	apiURL     string
	stateDir   string
	logLevel   string

	stdout io.Writer
	stderr io.Writer
	now    func() time.Time

	cfg    config.Config
	log    observability.Logger
	tracer observability.Tracer
	client *client.Client
	store  persist.Store
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr, now: time.Now}
	root := &cobra.Command{
		Use:           "ocrdesk",
		Short:         "Batch client for an OCR-to-PDF service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Path to a YAML config file")
	pf.StringVar(&a.apiURL, "api-url", "", "Service base URL, e.g. http://localhost:5000/api")
	pf.StringVar(&a.stateDir, "state-dir", "", "Directory holding the persisted batch state")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	root.AddCommand(
		a.submitCmd(),
		a.resumeCmd(),
		a.statusCmd(),
		a.resultsCmd(),
		a.statsCmd(),
		a.reviewCmd(),
		a.downloadCmd(),
		a.reportCmd(),
		a.galleryCmd(),
		a.clearCmd(),
		a.healthCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("api-url") {
		cfg.APIURL = a.apiURL
	}
	if flags.Changed("state-dir") {
		cfg.StateDir = a.stateDir
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.log = observability.NewLogger(a.stderr, cfg.LogFormat, cfg.LogLevel).
		With(observability.String("corr_id", uuid.NewString()), observability.String("cmd", cmd.Name()))
	a.tracer = observability.NopTracer()
	if strings.EqualFold(strings.TrimSpace(cfg.LogLevel), "debug") {
		a.tracer = observability.NewLogTracer(a.log)
	}

	store, err := persist.NewFileStore(cfg.StateDir)
	if err != nil {
		return err
	}
	a.store = store
	a.client = client.New(cfg.APIURL,
		client.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		client.WithLogger(a.log),
	)
	return nil
}

func (a *app) engine(opts ...reconcile.Option) *reconcile.Engine {
	base := []reconcile.Option{
		reconcile.WithLogger(a.log),
		reconcile.WithTracer(a.tracer),
		reconcile.WithPollInterval(a.cfg.PollInterval),
		reconcile.WithClock(a.now),
	}
	return reconcile.New(a.client, a.store, append(base, opts...)...)
}

func (a *app) sink() (artifacts.Sink, error) {
	switch a.cfg.Artifacts.Backend {
	case config.BackendMinIO:
		m := a.cfg.Artifacts.MinIO
		return artifacts.NewMinIOSink(artifacts.MinIOConfig{
			Endpoint:  m.Endpoint,
			AccessKey: m.AccessKey,
			SecretKey: m.SecretKey,
			Bucket:    m.Bucket,
			Prefix:    m.Prefix,
			Region:    m.Region,
			UseSSL:    m.UseSSL,
		})
	case config.BackendLocal:
		return artifacts.NewLocalSink(a.cfg.Artifacts.Dir)
	default:
		return nil, fmt.Errorf("unknown artifacts backend %q", a.cfg.Artifacts.Backend)
	}
}
