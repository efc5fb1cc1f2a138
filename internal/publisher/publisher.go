// Package publisher fans signal events out to downstream consumers.
package publisher

import (
	"context"
	"errors"

	"TrendSentinel/internal/model"
)

// Publisher delivers signal events to one downstream consumer.
type Publisher interface {
	Publish(ctx context.Context, evt *model.SignalEvent) error
	Close() error
}

// Multi publishes to every wrapped publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, evt *model.SignalEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, *model.SignalEvent) error { return nil }
func (Noop) Close() error                                      { return nil }
