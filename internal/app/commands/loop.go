// Package commands long-polls the messaging service and answers bot commands.
package commands

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/remindr/internal/domain/model"
	"github.com/okian/remindr/pkg/logger"
	"github.com/okian/remindr/pkg/metrics"
)

// Default loop configuration.
const (
	defaultLongPoll   = 30 * time.Second
	defaultRetryDelay = 5 * time.Second
	defaultListLimit  = 10
	defaultThreshold  = 15
)

// Poller fetches updates with ID >= offset, waiting up to timeoutSec.
type Poller interface {
	GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]model.Update, error)
}

// Sender delivers a reply.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Calendar lists upcoming events ordered by start.
type Calendar interface {
	ListUpcoming(ctx context.Context, since time.Time, maxResults int) ([]model.Event, error)
}

// Loop is the resumable long-poll command loop. The cursor lives in memory
// and only moves forward.
type Loop struct {
	poller   Poller
	sender   Sender
	calendar Calendar
	chatID   int64

	longPoll   time.Duration
	retryDelay time.Duration
	listLimit  int
	threshold  int
	location   *time.Location
	now        func() time.Time
	logger     logger.Logger

	cursor   atomic.Int64
	dispatch map[string]handler
}

// New creates a Loop that serves chatID only.
func New(poller Poller, sender Sender, cal Calendar, chatID int64, opts ...Option) *Loop {
	l := &Loop{
		poller:     poller,
		sender:     sender,
		calendar:   cal,
		chatID:     chatID,
		longPoll:   defaultLongPoll,
		retryDelay: defaultRetryDelay,
		listLimit:  defaultListLimit,
		threshold:  defaultThreshold,
		location:   time.Local,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = logger.Get().Named("commands")
	}
	l.dispatch = l.handlers()
	return l
}

// Cursor returns the offset the next poll will request.
func (l *Loop) Cursor() int64 {
	return l.cursor.Load()
}

// Run polls until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info(ctx, "command loop started", logger.Duration("long_poll", l.longPoll))
	for ctx.Err() == nil {
		if err := l.Poll(ctx); err != nil && ctx.Err() == nil {
			l.wait(ctx, l.retryDelay)
		}
	}
	l.logger.Info(ctx, "command loop stopped", logger.Int64("cursor", l.Cursor()))
	return nil
}

// Poll performs one long-poll and dispatches the batch. On error the cursor
// is left unchanged.
func (l *Loop) Poll(ctx context.Context) error {
	offset := l.cursor.Load()
	updates, err := l.poller.GetUpdates(ctx, offset, int(l.longPoll/time.Second))
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		metrics.RecordUpdatePollError()
		l.logger.Warn(ctx, "poll failed, retrying",
			logger.Int64("cursor", offset),
			logger.Duration("retry_in", l.retryDelay),
			logger.Error(err),
		)
		return err
	}
	if len(updates) == 0 {
		return nil
	}

	batchID := uuid.NewString()
	metrics.RecordUpdatesReceived(len(updates))

	next := offset
	for _, u := range updates {
		if u.ID+1 > next {
			next = u.ID + 1
		}
		l.handle(ctx, batchID, u)
	}
	l.advance(next)
	return nil
}

func (l *Loop) advance(next int64) {
	for {
		cur := l.cursor.Load()
		if next <= cur || l.cursor.CompareAndSwap(cur, next) {
			break
		}
	}
	metrics.UpdateResumeCursor(l.cursor.Load())
}

func (l *Loop) handle(ctx context.Context, batchID string, u model.Update) {
	if u.Message == nil {
		return
	}
	if u.Message.ChatID != l.chatID {
		l.logger.Warn(ctx, "ignoring message from unknown chat",
			logger.String("batch_id", batchID),
			logger.Int64("update_id", u.ID),
			logger.Int64("chat_id", u.Message.ChatID),
		)
		return
	}
	h, ok := l.dispatch[u.Message.Text]
	if !ok {
		return
	}
	metrics.RecordCommandHandled(u.Message.Text)
	if err := h(ctx, u.Message.ChatID); err != nil {
		l.logger.Error(ctx, "command reply failed",
			logger.String("batch_id", batchID),
			logger.String("command", u.Message.Text),
			logger.Error(err),
		)
	}
}

func (l *Loop) wait(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
