package pubsub

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"shopmetrics/internal/domain"
)

// DispatchResult is the broadcast record of one webhook dispatch.
type DispatchResult struct {
	Event   *domain.WebhookEvent
	Outcome string
	Err     error
}

// DispatchChannel represents one subscription.
type DispatchChannel struct {
	ID      string
	Filter  *DispatchFilter
	Results chan *DispatchResult
	ctx     context.Context
	cancel  context.CancelFunc
}

// DispatchFilter selects which results a subscriber receives.
type DispatchFilter struct {
	Topics   []string // filter by topics
	Shop     string   // filter by shop domain
	Outcomes []string // filter by dispatch outcome
}

// DispatchPubSub broadcasts dispatch results to in-process subscribers.
// The operator-alerting subscriber in main listens for compliance
// failures; tests subscribe to observe pipeline behavior.
type DispatchPubSub struct {
	mu       sync.RWMutex
	channels map[string]*DispatchChannel
	logger   zerolog.Logger
	nextID   int64
}

// NewDispatchPubSub creates a new dispatch result pub/sub.
func NewDispatchPubSub(logger zerolog.Logger) *DispatchPubSub {
	return &DispatchPubSub{
		channels: make(map[string]*DispatchChannel),
		logger:   logger,
	}
}

// Subscribe creates a new subscription. The channel is closed and the
// subscription removed when ctx is cancelled.
func (ps *DispatchPubSub) Subscribe(ctx context.Context, filter *DispatchFilter) *DispatchChannel {
	subCtx, cancel := context.WithCancel(ctx)

	ps.mu.Lock()
	ps.nextID++
	channel := &DispatchChannel{
		ID:      fmt.Sprintf("channel-%d", ps.nextID),
		Filter:  filter,
		Results: make(chan *DispatchResult, 10),
		ctx:     subCtx,
		cancel:  cancel,
	}
	ps.channels[channel.ID] = channel
	ps.mu.Unlock()

	ps.logger.Debug().
		Str("channelId", channel.ID).
		Msg("Dispatch subscription created")

	go func() {
		<-subCtx.Done()
		ps.Unsubscribe(channel.ID)
	}()

	return channel
}

// Unsubscribe removes a subscription.
func (ps *DispatchPubSub) Unsubscribe(channelID string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	channel, exists := ps.channels[channelID]
	if !exists {
		return
	}

	close(channel.Results)
	channel.cancel()
	delete(ps.channels, channelID)

	ps.logger.Debug().
		Str("channelId", channelID).
		Msg("Dispatch subscription removed")
}

// Publish broadcasts a result to all matching subscribers without
// blocking; slow subscribers drop results.
func (ps *DispatchPubSub) Publish(result *DispatchResult) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for _, channel := range ps.channels {
		if !matchesFilter(result, channel.Filter) {
			continue
		}
		select {
		case channel.Results <- result:
		case <-channel.ctx.Done():
		default:
			ps.logger.Warn().
				Str("channelId", channel.ID).
				Msg("Channel buffer full, dropping dispatch result")
		}
	}
}

func matchesFilter(result *DispatchResult, filter *DispatchFilter) bool {
	if filter == nil {
		return true
	}

	if len(filter.Topics) > 0 && !contains(filter.Topics, result.Event.Topic) {
		return false
	}
	if filter.Shop != "" && result.Event.Shop != filter.Shop {
		return false
	}
	if len(filter.Outcomes) > 0 && !contains(filter.Outcomes, result.Outcome) {
		return false
	}
	return true
}

func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}
