// Package intent maps free-form chat messages to structured order fields.
// The extractors are oracles: the pipeline above depends only on the
// structured result, never on message or model wording.
package intent

import (
	"context"
	"errors"

	"github.com/amirphl/futures-order-bot/internal/order"
)

// ErrUnrecognized means the message does not describe an order this
// extractor can represent. It is not an order failure; the caller decides
// whether to try another extractor or reply conversationally.
var ErrUnrecognized = errors.New("message not recognized as an order")

// Extractor turns a chat message into order fields or ErrUnrecognized.
type Extractor interface {
	Extract(ctx context.Context, message string) (order.Fields, error)
}

// Chain tries extractors in turn, falling through on ErrUnrecognized. Any
// other error stops the chain.
type Chain []Extractor

func (c Chain) Extract(ctx context.Context, message string) (order.Fields, error) {
	for _, e := range c {
		fields, err := e.Extract(ctx, message)
		if err == nil {
			return fields, nil
		}
		if !errors.Is(err, ErrUnrecognized) {
			return order.Fields{}, err
		}
	}
	return order.Fields{}, ErrUnrecognized
}
