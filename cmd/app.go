package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/teemow/inboxtriage/internal/calendar"
	"github.com/teemow/inboxtriage/internal/config"
	"github.com/teemow/inboxtriage/internal/gmail"
	"github.com/teemow/inboxtriage/internal/google"
	"github.com/teemow/inboxtriage/internal/instrumentation"
	"github.com/teemow/inboxtriage/internal/llm"
	"github.com/teemow/inboxtriage/internal/logging"
	"github.com/teemow/inboxtriage/internal/router"
	"github.com/teemow/inboxtriage/internal/storage"
	"github.com/teemow/inboxtriage/internal/tasks"
	"github.com/teemow/inboxtriage/internal/triage"
)

// appOptions selects which collaborators a command needs. A collaborator
// that is not required but cannot be built is left out with a warning; the
// stages that need it then report triage.ErrNotConfigured.
type appOptions struct {
	google        bool
	requireGoogle bool
	model         bool
	requireModel  bool

	// interactive lets the Google consent flow read the authorization
	// code from stdin.
	interactive bool

	// provider records metrics and traces when set.
	provider *instrumentation.Provider
}

// app holds everything a command needs to run the pipeline.
type app struct {
	cfg     *config.Config
	logger  *logging.SlogAdapter
	metrics *instrumentation.Metrics
	store   storage.Store
	svc     *triage.Service
}

// loadConfig reads the config file, applies the global flags and validates
// the result.
func loadConfig() (*config.Config, error) {
	path, required := configPath, configPath != ""
	if path == "" {
		path = config.DefaultPath()
	}

	cfg, err := config.Load(path, required)
	if err != nil {
		return nil, err
	}
	if debugMode {
		cfg.Log.Level = "debug"
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger. Logs go to stderr so stdout stays
// free for command output and the stdio MCP transport.
func newLogger(cfg *config.Config) (*logging.SlogAdapter, error) {
	return logging.New(os.Stderr, logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
}

// newApp wires storage, the Google collaborators, the model and the triage
// service from the configuration.
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}
	if opts.provider != nil && opts.provider.Enabled() {
		a.metrics = opts.provider.Metrics()
	}

	a.store, err = storage.New(cfg.StorageBackend())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Type, err)
	}

	svcOpts := triage.Options{
		Store:     a.store,
		Lookback:  cfg.Gmail.Lookback,
		MaxEmails: cfg.Gmail.MaxEmails,
		Metrics:   a.metrics,
		Logger:    logger,
	}

	rt := router.New(logger)
	rt.SynthesizeReplyTasks = cfg.Router.SynthesizeReplyTasks
	svcOpts.Router = rt

	if opts.google || opts.requireGoogle {
		if err := a.wireGoogle(ctx, opts, &svcOpts); err != nil {
			a.Close()
			return nil, err
		}
	}
	if opts.model || opts.requireModel {
		if err := a.wireModel(ctx, opts, &svcOpts); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.svc = triage.NewService(svcOpts)
	return a, nil
}

// wireGoogle builds the Gmail, Tasks and Calendar collaborators sharing one
// token file.
func (a *app) wireGoogle(ctx context.Context, opts appOptions, svcOpts *triage.Options) error {
	optional := func(err error) error {
		if opts.requireGoogle {
			return err
		}
		a.logger.Warn("google collaborators disabled; run `inboxtriage auth` first", logging.Err(err))
		return nil
	}

	auth, err := newAuthClient(a.cfg, a.metrics, a.logger, opts.interactive)
	if err != nil {
		return optional(err)
	}

	mail, err := gmail.NewClient(ctx, auth, a.metrics, a.logger)
	if err != nil {
		return optional(fmt.Errorf("failed to create Gmail client: %w", err))
	}
	taskClient, err := tasks.NewClient(ctx, auth, a.metrics, a.logger)
	if err != nil {
		return optional(fmt.Errorf("failed to create Tasks client: %w", err))
	}
	calClient, err := calendar.NewClient(ctx, auth, a.metrics, a.logger)
	if err != nil {
		return optional(fmt.Errorf("failed to create Calendar client: %w", err))
	}

	svcOpts.Mail = mail
	svcOpts.Tasks = &tasks.Sink{Client: taskClient, TaskListID: a.cfg.Tasks.TaskListID}
	svcOpts.Events = &calendar.Sink{Client: calClient, CalendarID: a.cfg.Calendar.CalendarID}
	return nil
}

func (a *app) wireModel(ctx context.Context, opts appOptions, svcOpts *triage.Options) error {
	model, err := llm.NewGemini(ctx, llm.GeminiConfig{
		APIKey:            a.cfg.LLM.APIKey,
		Model:             a.cfg.LLM.Model,
		BaseURL:           a.cfg.LLM.BaseURL,
		RequestsPerMinute: a.cfg.LLM.RequestsPerMinute,
		Timeout:           a.cfg.LLM.Timeout,
	}, a.metrics, a.logger)
	if err != nil {
		if opts.requireModel {
			return err
		}
		a.logger.Warn("language model disabled", logging.Err(err))
		return nil
	}
	a.logger.Debug("language model configured", "model", model.ModelName())
	svcOpts.Model = model
	return nil
}

// newAuthClient opens the token file client. Without interactive the
// consent flow sees an empty reader and fails instead of blocking on stdin.
func newAuthClient(cfg *config.Config, metrics *instrumentation.Metrics, logger logging.Logger, interactive bool) (*google.TokenFileClient, error) {
	var in io.Reader = os.Stdin
	if !interactive {
		in = strings.NewReader("")
	}
	return google.NewTokenFileClient(google.TokenFileOptions{
		CredentialsFile: cfg.Google.CredentialsFile,
		TokenFile:       cfg.Google.TokenFile,
		In:              in,
		Out:             os.Stderr,
		Metrics:         metrics,
		Logger:          logger,
	})
}

// Close releases the storage connection.
func (a *app) Close() {
	if c, ok := a.store.(io.Closer); ok {
		if err := c.Close(); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn("failed to close storage", logging.Err(err))
		}
	}
}
