// Package oracle turns commit context into prompts and language-model
// responses into structured verdicts.
package oracle

import (
	"context"
	"time"
)

const (
	defaultTimeout = 120 * time.Second

	// Temperature is pinned low so cached responses stay representative.
	requestTemperature = 0.1

	retryBackoff = 2 * time.Second
)

// Transport sends one system+user exchange to a model backend.
type Transport interface {
	Send(ctx context.Context, system, user string) (string, error)
	Model() string
}

// sendWithRetry retries a failed call once after a short backoff.
func sendWithRetry(ctx context.Context, model string, send func(context.Context) (string, error)) (string, error) {
	out, err := send(ctx)
	if err == nil {
		return out, nil
	}
	select {
	case <-ctx.Done():
		return "", &TransportError{Model: model, Err: ctx.Err()}
	case <-time.After(retryBackoff):
	}
	out, err = send(ctx)
	if err != nil {
		return "", &TransportError{Model: model, Err: err}
	}
	return out, nil
}
