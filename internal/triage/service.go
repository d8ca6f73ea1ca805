package triage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/inboxtriage/internal/actions"
	"github.com/teemow/inboxtriage/internal/instrumentation"
	"github.com/teemow/inboxtriage/internal/llm"
	"github.com/teemow/inboxtriage/internal/logging"
	"github.com/teemow/inboxtriage/internal/preferences"
	"github.com/teemow/inboxtriage/internal/prompt"
	"github.com/teemow/inboxtriage/internal/router"
	"github.com/teemow/inboxtriage/internal/storage"
)

// MailSource returns unread email.
type MailSource interface {
	FetchUnread(ctx context.Context, lookback time.Duration, max int) ([]actions.EmailRecord, error)
}

// EventSink inserts routed calendar entries.
type EventSink interface {
	AddEvent(ctx context.Context, entry router.CalendarEntry) error
}

// TaskSink inserts routed task entries.
type TaskSink interface {
	AddTask(ctx context.Context, entry router.TaskEntry) error
}

// ErrNotConfigured is returned when a stage needs a collaborator that was
// not supplied.
var ErrNotConfigured = errors.New("collaborator not configured")

// ErrNoTopPreferences is returned by SuggestTopics when no top preferences
// were given and none have been persisted.
var ErrNoTopPreferences = errors.New("no top preferences; submit general preferences first")

// Options wires a Service. Store and Preferences are required; the
// collaborators are only needed by the stages that use them.
type Options struct {
	Store       storage.Store
	Preferences *preferences.Store
	Prompts     *prompt.Builder
	Router      *router.Router

	Model  llm.Model
	Mail   MailSource
	Events EventSink
	Tasks  TaskSink

	Lookback  time.Duration
	MaxEmails int

	Metrics *instrumentation.Metrics
	Logger  logging.Logger

	// NewRunID defaults to uuid.NewString.
	NewRunID func() string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Service runs the fetch, suggest, classify and dispatch stages.
type Service struct {
	store   storage.Store
	prefs   *preferences.Store
	prompts *prompt.Builder
	router  *router.Router

	model  llm.Model
	mail   MailSource
	events EventSink
	tasks  TaskSink

	lookback  time.Duration
	maxEmails int

	metrics  *instrumentation.Metrics
	logger   logging.Logger
	newRunID func() string
	now      func() time.Time
}

// NewService creates a Service from opts.
func NewService(opts Options) *Service {
	logger := logging.OrDiscard(opts.Logger)

	s := &Service{
		store:     opts.Store,
		prefs:     opts.Preferences,
		prompts:   opts.Prompts,
		router:    opts.Router,
		model:     opts.Model,
		mail:      opts.Mail,
		events:    opts.Events,
		tasks:     opts.Tasks,
		lookback:  opts.Lookback,
		maxEmails: opts.MaxEmails,
		metrics:   opts.Metrics,
		logger:    logger,
		newRunID:  opts.NewRunID,
		now:       opts.Now,
	}
	if s.prefs == nil {
		s.prefs = preferences.NewStore(opts.Store, logger)
	}
	if s.prompts == nil {
		s.prompts = prompt.New()
	}
	if s.router == nil {
		s.router = router.New(logger)
	}
	if s.newRunID == nil {
		s.newRunID = uuid.NewString
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Preferences exposes the preference store.
func (s *Service) Preferences() *preferences.Store {
	return s.prefs
}

// FetchEmails reads unread mail and persists it for the classifier.
func (s *Service) FetchEmails(ctx context.Context) ([]actions.EmailRecord, error) {
	if s.mail == nil {
		return nil, fmt.Errorf("mail source: %w", ErrNotConfigured)
	}

	ctx, span := instrumentation.StartStageSpan(ctx, instrumentation.StageFetch, "")
	defer span.End()

	emails, err := s.mail.FetchUnread(ctx, s.lookback, s.maxEmails)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		s.metrics.RecordTriageRun(ctx, instrumentation.StageFetch, instrumentation.StatusError)
		return nil, fmt.Errorf("failed to fetch emails: %w", err)
	}
	if emails == nil {
		emails = []actions.EmailRecord{}
	}

	if err := s.store.Save(ctx, storage.KeyEmails, emails); err != nil {
		instrumentation.SetSpanError(span, err)
		s.metrics.RecordTriageRun(ctx, instrumentation.StageFetch, instrumentation.StatusError)
		return nil, fmt.Errorf("failed to save emails: %w", err)
	}

	instrumentation.SetSpanSuccess(span)
	s.metrics.RecordTriageRun(ctx, instrumentation.StageFetch, instrumentation.StatusSuccess)
	s.logger.Info("saved unread emails", logging.Stage(instrumentation.StageFetch), "count", len(emails))
	return emails, nil
}

// Emails returns the emails persisted by the last FetchEmails.
func (s *Service) Emails(ctx context.Context) ([]actions.EmailRecord, error) {
	var emails []actions.EmailRecord
	if err := s.store.Load(ctx, storage.KeyEmails, &emails); err != nil {
		return nil, err
	}
	return emails, nil
}

// SuggestTopics asks the model for specific topics derived from the top
// general preferences and persists them as the specific topic catalog.
// When top is empty the persisted top preferences are used.
func (s *Service) SuggestTopics(ctx context.Context, top []preferences.Topic) ([]preferences.Topic, error) {
	if s.model == nil {
		return nil, fmt.Errorf("model: %w", ErrNotConfigured)
	}

	ctx, span := instrumentation.StartStageSpan(ctx, instrumentation.StageSuggest, "")
	defer span.End()

	if len(top) == 0 {
		var err error
		top, err = s.prefs.TopPreferences(ctx)
		if err != nil {
			instrumentation.SetSpanError(span, err)
			s.metrics.RecordTriageRun(ctx, instrumentation.StageSuggest, instrumentation.StatusSkipped)
			return nil, fmt.Errorf("%w: %w", ErrNoTopPreferences, err)
		}
	}

	reply, err := s.model.Generate(ctx, s.prompts.BuildSuggestionPrompt(top))
	if err != nil {
		instrumentation.SetSpanError(span, err)
		s.metrics.RecordTriageRun(ctx, instrumentation.StageSuggest, instrumentation.StatusError)
		return nil, fmt.Errorf("failed to generate topic suggestions: %w", err)
	}

	topics, err := actions.ParseSuggestions(reply)
	if err == nil && len(topics) == 0 {
		err = &actions.ParseError{Stage: actions.StageDecode, Reason: "no topics suggested"}
	}
	if err != nil {
		instrumentation.SetSpanError(span, err)
		s.metrics.RecordTriageRun(ctx, instrumentation.StageSuggest, instrumentation.StatusError)
		s.logger.Warn("unusable topic suggestions", logging.Stage(instrumentation.StageSuggest), logging.Err(err))
		return nil, err
	}

	if err := s.prefs.SaveSpecificTopics(ctx, topics); err != nil {
		instrumentation.SetSpanError(span, err)
		s.metrics.RecordTriageRun(ctx, instrumentation.StageSuggest, instrumentation.StatusError)
		return nil, err
	}

	instrumentation.SetSpanSuccess(span)
	s.metrics.RecordTriageRun(ctx, instrumentation.StageSuggest, instrumentation.StatusSuccess)
	s.logger.Info("suggested specific topics", logging.Stage(instrumentation.StageSuggest), "count", len(topics))
	return topics, nil
}

// Actions returns the batch persisted by the last successful classification.
func (s *Service) Actions(ctx context.Context) ([]actions.ClassifiedAction, error) {
	var batch []actions.ClassifiedAction
	if err := s.store.Load(ctx, storage.KeyActions, &batch); err != nil {
		return nil, err
	}
	return batch, nil
}

// Organize classifies the persisted emails and dispatches the routed
// entries. Missing inputs produce a skipped report without an error. A
// model reply that cannot be parsed produces a failed report and an error
// wrapping *actions.ParseError; nothing is persisted or dispatched then.
func (s *Service) Organize(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     s.newRunID(),
		StartedAt: s.now(),
	}
	logger := s.logger
	if sa, ok := logger.(*logging.SlogAdapter); ok {
		logger = sa.With(logging.RunID(report.RunID))
	}
	defer func() { report.FinishedAt = s.now() }()

	batch, err := s.classify(ctx, report, logger)
	if err != nil || report.Status == StatusSkipped {
		return report, err
	}

	s.dispatch(ctx, report, batch, logger)
	report.Status = StatusCompleted

	logger.Info("organize run finished",
		logging.Status(string(report.Status)),
		"classified", report.Classified,
		"events_created", report.Events.Created,
		"tasks_created", report.Tasks.Created,
		"failed", report.Failed(),
		"skipped", report.Skipped)
	return report, nil
}

func (s *Service) classify(ctx context.Context, report *Report, logger logging.Logger) ([]actions.ClassifiedAction, error) {
	ctx, span := instrumentation.StartStageSpan(ctx, instrumentation.StageClassify, report.RunID)
	defer span.End()

	skip := func(reason string) ([]actions.ClassifiedAction, error) {
		report.Status = StatusSkipped
		report.Reason = reason
		instrumentation.AddSpanEvent(span, "skipped")
		s.metrics.RecordTriageRun(ctx, instrumentation.StageClassify, instrumentation.StatusSkipped)
		logger.Warn("classification skipped", logging.Stage(instrumentation.StageClassify), "reason", reason)
		return nil, nil
	}
	fail := func(err error) ([]actions.ClassifiedAction, error) {
		report.Status = StatusFailed
		report.Reason = err.Error()
		instrumentation.SetSpanError(span, err)
		s.metrics.RecordTriageRun(ctx, instrumentation.StageClassify, instrumentation.StatusError)
		logger.Error("classification failed", logging.Stage(instrumentation.StageClassify), logging.Err(err))
		return nil, err
	}

	if s.model == nil {
		return fail(fmt.Errorf("model: %w", ErrNotConfigured))
	}

	emails, err := s.Emails(ctx)
	if storage.IsNotFound(err) {
		return skip("no fetched emails; fetch emails first")
	}
	if err != nil {
		return fail(fmt.Errorf("failed to load emails: %w", err))
	}
	report.Emails = len(emails)
	if len(emails) == 0 {
		return skip("no email data to process")
	}

	general, err := s.loadRanking(ctx, s.prefs.General, preferences.TierGeneral, logger)
	if err != nil {
		return fail(err)
	}
	specific, err := s.loadRanking(ctx, s.prefs.Specific, preferences.TierSpecific, logger)
	if err != nil {
		return fail(err)
	}

	reply, err := s.model.Generate(ctx, s.prompts.BuildClassificationPrompt(emails, general, specific))
	if err != nil {
		return fail(fmt.Errorf("failed to classify emails: %w", err))
	}

	parsed, err := actions.ParseClassification(reply)
	if err != nil {
		return fail(fmt.Errorf("unusable classification reply: %w", err))
	}

	report.Classified = len(parsed.Actions)
	report.Skipped = len(parsed.Skipped)
	report.SkippedItems = parsed.Skipped
	if len(parsed.Skipped) > 0 {
		s.metrics.RecordSkippedItems(ctx, instrumentation.ReasonParse, len(parsed.Skipped))
		for _, item := range parsed.Skipped {
			logger.Warn("skipped classified item", logging.EmailID(item.EmailID), "index", item.Index, "reason", item.Reason)
		}
	}

	if err := s.store.Save(ctx, storage.KeyActions, parsed.Actions); err != nil {
		return fail(fmt.Errorf("failed to save classified actions: %w", err))
	}

	instrumentation.SetSpanSuccess(span)
	s.metrics.RecordTriageRun(ctx, instrumentation.StageClassify, instrumentation.StatusSuccess)
	logger.Info("classified emails", logging.Stage(instrumentation.StageClassify),
		"emails", report.Emails, "actions", report.Classified, "skipped", report.Skipped)
	return parsed.Actions, nil
}

// loadRanking treats a missing ranking as empty so classification can run
// before the user has ranked anything.
func (s *Service) loadRanking(ctx context.Context, load func(context.Context) (preferences.Ranking, error), tier preferences.Tier, logger logging.Logger) (preferences.Ranking, error) {
	r, err := load(ctx)
	if storage.IsNotFound(err) {
		logger.Warn("no saved preferences, classifying without them", logging.Tier(string(tier)))
		return preferences.Ranking{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s preferences: %w", tier, err)
	}
	return r, nil
}

func (s *Service) dispatch(ctx context.Context, report *Report, batch []actions.ClassifiedAction, logger logging.Logger) {
	ctx, span := instrumentation.StartStageSpan(ctx, instrumentation.StageDispatch, report.RunID)
	defer span.End()

	routed := s.router.Route(batch)
	report.Skipped += routed.Skipped
	report.Filtered = routed.Filtered
	report.Synthesized = routed.Synthesized
	report.Unpaired = routed.Unpaired
	report.Events.Routed = len(routed.Events)
	report.Tasks.Routed = len(routed.Tasks)

	if routed.Skipped > 0 {
		s.metrics.RecordSkippedItems(ctx, instrumentation.ReasonUnknownType, routed.Skipped)
	}
	if routed.Filtered > 0 {
		s.metrics.RecordSkippedItems(ctx, instrumentation.ReasonImportance, routed.Filtered)
	}
	if routed.Unpaired > 0 {
		s.metrics.RecordSkippedItems(ctx, instrumentation.ReasonUnpaired, routed.Unpaired)
	}

	for _, ev := range routed.Events {
		if s.events == nil {
			report.Events.Failed++
			continue
		}
		if err := s.events.AddEvent(ctx, ev); err != nil {
			report.Events.Failed++
			logger.Warn("failed to add event", logging.EmailID(ev.EmailID), "summary", ev.Summary, logging.Err(err))
			continue
		}
		report.Events.Created++
	}

	for _, task := range routed.Tasks {
		if s.tasks == nil {
			report.Tasks.Failed++
			continue
		}
		if err := s.tasks.AddTask(ctx, task); err != nil {
			report.Tasks.Failed++
			logger.Warn("failed to add task", logging.EmailID(task.EmailID), "title", task.Title, logging.Err(err))
			continue
		}
		report.Tasks.Created++
	}

	if s.events == nil && len(routed.Events) > 0 {
		logger.Warn("no calendar configured, events not created", "count", len(routed.Events))
	}
	if s.tasks == nil && len(routed.Tasks) > 0 {
		logger.Warn("no task list configured, tasks not created", "count", len(routed.Tasks))
	}

	s.metrics.RecordTriageActions(ctx, instrumentation.DestinationCalendar, instrumentation.StatusSuccess, report.Events.Created)
	s.metrics.RecordTriageActions(ctx, instrumentation.DestinationCalendar, instrumentation.StatusError, report.Events.Failed)
	s.metrics.RecordTriageActions(ctx, instrumentation.DestinationTasks, instrumentation.StatusSuccess, report.Tasks.Created)
	s.metrics.RecordTriageActions(ctx, instrumentation.DestinationTasks, instrumentation.StatusError, report.Tasks.Failed)

	if report.Failed() > 0 {
		instrumentation.AddSpanEvent(span, "partial_failure")
	}
	instrumentation.SetSpanSuccess(span)
	s.metrics.RecordTriageRun(ctx, instrumentation.StageDispatch, instrumentation.StatusSuccess)
}
