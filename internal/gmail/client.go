package gmail

import (
	"context"
	"fmt"
	"time"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/inboxtriage/internal/actions"
	"github.com/teemow/inboxtriage/internal/google"
	"github.com/teemow/inboxtriage/internal/instrumentation"
	"github.com/teemow/inboxtriage/internal/logging"
)

// Defaults for FetchUnread.
const (
	DefaultLookback  = 48 * time.Hour
	DefaultMaxEmails = 10

	DefaultSubject = "No Subject"
	DefaultSender  = "Unknown Sender"

	// maxPageSize is the largest page the messages.list call accepts.
	maxPageSize = 500
)

// Client wraps the Gmail Users service.
type Client struct {
	svc     *gmail.UsersService
	metrics *instrumentation.Metrics
	logger  logging.Logger

	// Now is used to compute the lookback window. Defaults to time.Now.
	Now func() time.Time
}

// NewClient creates a Gmail client authenticated through auth.
func NewClient(ctx context.Context, auth google.AuthorizedClient, metrics *instrumentation.Metrics, logger logging.Logger) (*Client, error) {
	httpClient, err := auth.HTTPClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("no valid Google OAuth token: %w", err)
	}
	return NewClientWithOptions(ctx, metrics, logger, option.WithHTTPClient(httpClient))
}

// NewClientWithOptions creates a Gmail client from raw API client options.
func NewClientWithOptions(ctx context.Context, metrics *instrumentation.Metrics, logger logging.Logger, opts ...option.ClientOption) (*Client, error) {
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return &Client{
		svc:     svc.Users,
		metrics: metrics,
		logger:  logging.OrDiscard(logger),
		Now:     time.Now,
	}, nil
}

// UnreadQuery returns the search query for unread primary mail received
// after now-lookback.
func UnreadQuery(now time.Time, lookback time.Duration) string {
	return fmt.Sprintf("is:unread category:primary after:%d", now.Add(-lookback).Unix())
}

// FetchUnread returns up to max unread primary emails from the lookback
// window, newest first as listed by Gmail.
func (c *Client) FetchUnread(ctx context.Context, lookback time.Duration, max int) ([]actions.EmailRecord, error) {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	if max <= 0 {
		max = DefaultMaxEmails
	}

	ids, err := c.listMessageIDs(ctx, UnreadQuery(c.Now(), lookback), int64(max))
	if err != nil {
		return nil, err
	}

	emails := make([]actions.EmailRecord, 0, len(ids))
	for _, id := range ids {
		msg, err := c.getMessage(ctx, id)
		if err != nil {
			return nil, err
		}
		rec := toEmailRecord(msg, c.logger)
		c.metrics.RecordEmailFetched(ctx, rec.Sender)
		emails = append(emails, rec)
	}

	c.logger.Info("fetched unread emails", "count", len(emails))
	return emails, nil
}

// listMessageIDs pages through messages.list until maxResults ids are
// collected or the result set is exhausted.
func (c *Client) listMessageIDs(ctx context.Context, q string, maxResults int64) ([]string, error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceGmail, instrumentation.OperationList)
	defer span.End()
	start := time.Now()

	var ids []string
	pageToken := ""
	for {
		remaining := maxResults - int64(len(ids))
		if remaining <= 0 {
			break
		}
		pageSize := remaining
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		req := c.svc.Messages.List("me").Q(q).MaxResults(pageSize).Context(ctx)
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}

		res, err := req.Do()
		if err != nil {
			instrumentation.SetSpanError(span, err)
			c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceGmail, instrumentation.OperationList, instrumentation.StatusError, time.Since(start))
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}

		for _, m := range res.Messages {
			ids = append(ids, m.Id)
		}

		if res.NextPageToken == "" {
			break
		}
		pageToken = res.NextPageToken
	}

	if int64(len(ids)) > maxResults {
		ids = ids[:maxResults]
	}

	instrumentation.SetSpanSuccess(span)
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceGmail, instrumentation.OperationList, instrumentation.StatusSuccess, time.Since(start))
	return ids, nil
}

func (c *Client) getMessage(ctx context.Context, id string) (*gmail.Message, error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceGmail, instrumentation.OperationGet)
	defer span.End()
	start := time.Now()

	msg, err := c.svc.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		instrumentation.SetSpanError(span, err)
		c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceGmail, instrumentation.OperationGet, instrumentation.StatusError, time.Since(start))
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}

	instrumentation.SetSpanSuccess(span)
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceGmail, instrumentation.OperationGet, instrumentation.StatusSuccess, time.Since(start))
	return msg, nil
}
