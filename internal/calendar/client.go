package calendar

import (
	"context"
	"fmt"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/inboxtriage/internal/google"
	"github.com/teemow/inboxtriage/internal/instrumentation"
	"github.com/teemow/inboxtriage/internal/logging"
	"github.com/teemow/inboxtriage/internal/router"
)

// Client wraps the Google Calendar service
type Client struct {
	svc     *calendar.Service
	metrics *instrumentation.Metrics
	logger  logging.Logger
}

// NewClient creates a Calendar client authenticated through auth.
func NewClient(ctx context.Context, auth google.AuthorizedClient, metrics *instrumentation.Metrics, logger logging.Logger) (*Client, error) {
	httpClient, err := auth.HTTPClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("no valid Google OAuth token: %w", err)
	}
	return NewClientWithOptions(ctx, metrics, logger, option.WithHTTPClient(httpClient))
}

// NewClientWithOptions creates a Calendar client from raw API client options.
func NewClientWithOptions(ctx context.Context, metrics *instrumentation.Metrics, logger logging.Logger, opts ...option.ClientOption) (*Client, error) {
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	return &Client{svc: svc, metrics: metrics, logger: logging.OrDiscard(logger)}, nil
}

// CreateEvent creates a new timed event in calendarID ("primary" when empty).
func (c *Client) CreateEvent(ctx context.Context, calendarID string, input EventInput) (*Event, error) {
	if calendarID == "" {
		calendarID = DefaultCalendarID
	}
	if input.Start == "" || input.End == "" {
		return nil, fmt.Errorf("event start and end are required")
	}
	tz := input.TimeZone
	if tz == "" {
		tz = router.DefaultTimeZone
	}

	event := &calendar.Event{
		Summary:     input.Summary,
		Description: input.Description,
		Start:       &calendar.EventDateTime{DateTime: input.Start, TimeZone: tz},
		End:         &calendar.EventDateTime{DateTime: input.End, TimeZone: tz},
	}

	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceCalendar, instrumentation.OperationCreate)
	defer span.End()
	start := time.Now()

	created, err := c.svc.Events.Insert(calendarID, event).Context(ctx).Do()
	if err != nil {
		instrumentation.SetSpanError(span, err)
		c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar, instrumentation.OperationCreate, instrumentation.StatusError, time.Since(start))
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	instrumentation.SetSpanSuccess(span)
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar, instrumentation.OperationCreate, instrumentation.StatusSuccess, time.Since(start))
	c.logger.Info("event added", "summary", created.Summary, "event_id", created.Id)

	out := &Event{ID: created.Id, Summary: created.Summary, HTMLLink: created.HtmlLink}
	if created.Start != nil {
		out.Start = created.Start.DateTime
	}
	if created.End != nil {
		out.End = created.End.DateTime
	}
	return out, nil
}

// Sink creates routed calendar entries in a fixed calendar.
type Sink struct {
	Client     *Client
	CalendarID string
}

// AddEvent implements the triage event sink.
func (s *Sink) AddEvent(ctx context.Context, entry router.CalendarEntry) error {
	tz := entry.Start.TimeZone
	if tz == "" {
		tz = entry.End.TimeZone
	}
	_, err := s.Client.CreateEvent(ctx, s.CalendarID, EventInput{
		Summary:     entry.Summary,
		Description: entry.Description,
		Start:       entry.Start.DateTime,
		End:         entry.End.DateTime,
		TimeZone:    tz,
	})
	return err
}
