package shared

import (
	"context"
	"time"
)

// CandleStorer defines the requirements for persisting finalized candlesticks.
type CandleStorer interface {
	// PersistCandle stores the provided finalized candlestick.
	PersistCandle(ctx context.Context, candle *Candlestick) error
}

// SignalStorer defines the requirements for persisting emitted signals.
type SignalStorer interface {
	// PersistSpike stores the provided volume spike signal.
	PersistSpike(ctx context.Context, spike *Spike) error
	// PersistTickBurst stores the provided tick burst record.
	PersistTickBurst(ctx context.Context, burst *TickBurst) error
	// PersistEarlyOrder stores the provided early entry order.
	PersistEarlyOrder(ctx context.Context, order *EarlyOrder) error
}

// DelistingStorer defines the requirements for persisting and querying delistings.
type DelistingStorer interface {
	// PersistDelisting stores the provided delisting announcement.
	PersistDelisting(ctx context.Context, delisting *Delisting) error
	// FetchRecentDelistings fetches delistings announced at or after the provided time.
	FetchRecentDelistings(ctx context.Context, since time.Time) ([]Delisting, error)
}
