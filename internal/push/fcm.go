package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/fcm/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// FCMMaxBatchSize is the largest number of tokens sent per batch.
const FCMMaxBatchSize = 500

// FCMConfig configures the Firebase Cloud Messaging sender.
type FCMConfig struct {
	ProjectID       string
	CredentialsFile string
	BatchSize       int
	Concurrency     int
	MaxRetries      uint64
	RetryBase       time.Duration
}

// FCMSender delivers messages through the FCM HTTP v1 API. The v1 API has no
// multicast call, so a batch is sent as parallel single-token requests.
type FCMSender struct {
	service     *fcm.Service
	parent      string
	batchSize   int
	concurrency int
	maxRetries  uint64
	retryBase   time.Duration
	logger      *slog.Logger
}

// NewFCMSender builds a sender for cfg.ProjectID. Credentials come from
// cfg.CredentialsFile when set, otherwise from application default credentials.
// Extra client options are appended last.
func NewFCMSender(ctx context.Context, cfg FCMConfig, logger *slog.Logger, opts ...option.ClientOption) (*FCMSender, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, fmt.Errorf("push: fcm project id is required")
	}

	clientOpts := make([]option.ClientOption, 0, len(opts)+1)
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	clientOpts = append(clientOpts, opts...)

	service, err := fcm.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("push: create fcm service: %w", err)
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 || batchSize > FCMMaxBatchSize {
		batchSize = FCMMaxBatchSize
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 16
	}
	retryBase := cfg.RetryBase
	if retryBase <= 0 {
		retryBase = 200 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &FCMSender{
		service:     service,
		parent:      "projects/" + cfg.ProjectID,
		batchSize:   batchSize,
		concurrency: concurrency,
		maxRetries:  cfg.MaxRetries,
		retryBase:   retryBase,
		logger:      logger.With("component", "push.fcm"),
	}, nil
}

// MaxBatchSize implements Sender.
func (s *FCMSender) MaxBatchSize() int { return s.batchSize }

// Send implements Sender.
func (s *FCMSender) Send(ctx context.Context, messages []Message) ([]Result, error) {
	if len(messages) > s.batchSize {
		return nil, fmt.Errorf("push: batch of %d exceeds limit %d", len(messages), s.batchSize)
	}

	results := make([]Result, len(messages))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, msg := range messages {
		g.Go(func() error {
			results[i] = Result{Token: msg.Token, Err: s.sendOne(ctx, msg)}
			return nil
		})
	}
	_ = g.Wait()

	unavailable := 0
	for _, result := range results {
		if errors.Is(result.Err, ErrChannelUnavailable) {
			unavailable++
		}
	}
	if len(results) > 0 && unavailable == len(results) {
		s.logger.WarnContext(ctx, "fcm unreachable for whole batch", "size", len(results), "error", results[0].Err)
		return nil, ErrChannelUnavailable
	}

	return results, nil
}

func (s *FCMSender) sendOne(ctx context.Context, msg Message) error {
	request := &fcm.SendMessageRequest{
		Message: &fcm.Message{
			Token: msg.Token,
			Notification: &fcm.Notification{
				Title: msg.Title,
				Body:  msg.Body,
			},
			Data: msg.Data,
		},
	}

	backoff := retry.WithMaxRetries(s.maxRetries, retry.NewExponential(s.retryBase))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		_, err := s.service.Projects.Messages.Send(s.parent, request).Context(ctx).Do()
		if err == nil {
			return nil
		}
		if isTransient(err) {
			return retry.RetryableError(err)
		}
		return classify(err)
	})
}

func isTransient(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
}

// classify maps FCM responses onto the package sentinels.
func classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusNotFound,
			strings.Contains(apiErr.Body, "UNREGISTERED"):
			return fmt.Errorf("%w: %v", ErrInvalidToken, err)
		case apiErr.Code == http.StatusBadRequest &&
			strings.Contains(strings.ToLower(apiErr.Message), "registration token"):
			return fmt.Errorf("%w: %v", ErrInvalidToken, err)
		case apiErr.Code == http.StatusUnauthorized, apiErr.Code == http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrChannelUnavailable, err)
		}
		return err
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%w: %v", ErrChannelUnavailable, err)
	}
	return err
}
