package tasks

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"github.com/teemow/inboxtriage/internal/google"
	"github.com/teemow/inboxtriage/internal/instrumentation"
	"github.com/teemow/inboxtriage/internal/logging"
	"github.com/teemow/inboxtriage/internal/router"
)

// Client wraps the Google Tasks service
type Client struct {
	svc     *tasks.Service
	metrics *instrumentation.Metrics
	logger  logging.Logger
}

// NewClient creates a Tasks client authenticated through auth.
func NewClient(ctx context.Context, auth google.AuthorizedClient, metrics *instrumentation.Metrics, logger logging.Logger) (*Client, error) {
	httpClient, err := auth.HTTPClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("no valid Google OAuth token: %w", err)
	}
	return NewClientWithOptions(ctx, metrics, logger, option.WithHTTPClient(httpClient))
}

// NewClientWithOptions creates a Tasks client from raw API client options.
func NewClientWithOptions(ctx context.Context, metrics *instrumentation.Metrics, logger logging.Logger, opts ...option.ClientOption) (*Client, error) {
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Tasks service: %w", err)
	}
	return &Client{svc: svc, metrics: metrics, logger: logging.OrDiscard(logger)}, nil
}

// CreateTask creates a new task in taskListID ("@default" when empty).
func (c *Client) CreateTask(ctx context.Context, taskListID string, input TaskInput) (*Task, error) {
	if taskListID == "" {
		taskListID = DefaultTaskListID
	}

	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceTasks, instrumentation.OperationCreate)
	defer span.End()
	start := time.Now()

	created, err := c.svc.Tasks.Insert(taskListID, &tasks.Task{
		Title: input.Title,
		Notes: input.Notes,
	}).Context(ctx).Do()
	if err != nil {
		instrumentation.SetSpanError(span, err)
		c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceTasks, instrumentation.OperationCreate, instrumentation.StatusError, time.Since(start))
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	instrumentation.SetSpanSuccess(span)
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceTasks, instrumentation.OperationCreate, instrumentation.StatusSuccess, time.Since(start))
	c.logger.Info("task added", "title", created.Title, "task_id", created.Id)

	return &Task{
		ID:     created.Id,
		Title:  created.Title,
		Notes:  created.Notes,
		Status: created.Status,
	}, nil
}

// Sink creates routed task entries in a fixed task list.
type Sink struct {
	Client     *Client
	TaskListID string
}

// AddTask implements the triage task sink.
func (s *Sink) AddTask(ctx context.Context, entry router.TaskEntry) error {
	_, err := s.Client.CreateTask(ctx, s.TaskListID, TaskInput{Title: entry.Title, Notes: entry.Notes})
	return err
}
