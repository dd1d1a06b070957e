// internal/common/camunda/client.go
package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hris-cloud/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// Client wraps the Zeebe gRPC client used to start screening workflows.
type Client struct {
	client zbc.Client
	config *ClientConfig
}

type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	// RequestTimeout bounds a single command attempt. Zero leaves it to ctx.
	RequestTimeout time.Duration
	RetryConfig    *RetryConfig
}

type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var DefaultRetryConfig = &RetryConfig{
	MaxRetries: 3,
	BaseDelay:  1 * time.Second,
	MaxDelay:   10 * time.Second,
}

// NewClientWithConfig dials the gateway and verifies the broker topology.
func NewClientWithConfig(config *ClientConfig) (*Client, error) {
	if config.RetryConfig == nil {
		config.RetryConfig = DefaultRetryConfig
	}
	if config.ConnectionTimeout <= 0 {
		config.ConnectionTimeout = 10 * time.Second
	}

	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         config.GatewayAddress,
		UsePlaintextConnection: config.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	c := &Client{client: zeebeClient, config: config}
	if err := c.HealthCheck(context.Background()); err != nil {
		zeebeClient.Close()
		return nil, fmt.Errorf("failed to connect to Zeebe broker at %s: %w", config.GatewayAddress, err)
	}
	return c, nil
}

func (c *Client) GetClient() zbc.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}

// HealthCheck asks the gateway for the broker topology.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	if _, err := c.client.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}

// StartProcess creates an instance of the latest deployed version of
// processID with vars as its variables and returns the instance key.
func (c *Client) StartProcess(ctx context.Context, processID string, vars interface{}) (int64, error) {
	var key int64
	err := c.withRetry(ctx, "create-instance:"+processID, func(ctx context.Context) error {
		cmd, err := c.client.NewCreateInstanceCommand().
			BPMNProcessId(processID).
			LatestVersion().
			VariablesFromObject(vars)
		if err != nil {
			return err
		}
		resp, err := cmd.Send(ctx)
		if err != nil {
			return err
		}
		key = resp.GetProcessInstanceKey()
		return nil
	})
	return key, err
}

// withRetry runs fn until it succeeds, fails permanently or runs out of
// attempts. Only unavailable and timeout failures are retried.
func (c *Client) withRetry(ctx context.Context, operation string, fn func(context.Context) error) error {
	retry := c.config.RetryConfig
	delay := retry.BaseDelay

	for attempt := 0; ; attempt++ {
		err := c.attempt(ctx, fn)
		if err == nil {
			return nil
		}

		kind := classify(err)
		if !kind.retryable() || attempt == retry.MaxRetries {
			return kind.toAppError(operation, attempt, err)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%s cancelled after %d attempts: %w", operation, attempt+1, ctx.Err())
		}
		if delay *= 2; delay > retry.MaxDelay {
			delay = retry.MaxDelay
		}
	}
}

func (c *Client) attempt(ctx context.Context, fn func(context.Context) error) error {
	if c.config.RequestTimeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()
	return fn(ctx)
}

type failureKind int

const (
	failureUnknown failureKind = iota
	failureUnavailable
	failureTimeout
	failureNotFound
	failureConflict
	failureDenied
)

// failurePhrases is checked in order; the first match wins.
var failurePhrases = []struct {
	kind    failureKind
	phrases []string
}{
	{failureUnavailable, []string{"connection refused", "connection reset", "unavailable", "unreachable", "broken pipe"}},
	{failureTimeout, []string{"timeout", "deadline exceeded"}},
	{failureNotFound, []string{"not found"}},
	{failureConflict, []string{"already exists"}},
	{failureDenied, []string{"permission denied", "unauthorized"}},
}

func classify(err error) failureKind {
	msg := strings.ToLower(err.Error())
	for _, group := range failurePhrases {
		for _, phrase := range group.phrases {
			if strings.Contains(msg, phrase) {
				return group.kind
			}
		}
	}
	return failureUnknown
}

func (k failureKind) retryable() bool {
	return k == failureUnavailable || k == failureTimeout
}

func (k failureKind) toAppError(operation string, attempt int, err error) error {
	prefix := fmt.Sprintf("Zeebe operation '%s' failed", operation)
	if attempt > 0 {
		prefix += fmt.Sprintf(" after %d attempts", attempt+1)
	}
	wrapped := fmt.Errorf("%s: %w", prefix, err)

	switch k {
	case failureTimeout:
		return errors.NewTimeoutError("zeebe", wrapped)
	case failureNotFound:
		return errors.NewResourceNotFoundError("zeebe", wrapped.Error())
	case failureConflict:
		return errors.NewInvalidInputError(wrapped.Error())
	case failureDenied:
		return errors.NewAuthenticationError(wrapped.Error())
	default:
		return errors.NewExternalServiceError("zeebe", wrapped)
	}
}
