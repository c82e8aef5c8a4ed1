// Package reminder sends a one-time notification shortly before each event.
package reminder

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/okian/remindr/internal/domain/model"
	"github.com/okian/remindr/pkg/logger"
	"github.com/okian/remindr/pkg/metrics"
)

// Default scheduler configuration.
const (
	defaultInterval   = time.Minute
	defaultThreshold  = 15
	defaultMaxResults = 10
)

// Calendar lists upcoming events ordered by start.
type Calendar interface {
	ListUpcoming(ctx context.Context, since time.Time, maxResults int) ([]model.Event, error)
}

// Sender delivers a formatted message.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Notified is the subset of the dedup store the scheduler needs.
type Notified interface {
	Contains(ctx context.Context, id string) bool
	Add(ctx context.Context, id string) error
}

// TickResult summarizes one evaluation pass.
type TickResult struct {
	Fetched  int   `json:"fetched"`
	Eligible int   `json:"eligible"`
	Sent     int   `json:"sent"`
	Failed   int   `json:"failed"`
	Skipped  int   `json:"skipped"`
	Err      error `json:"-"`
}

// Scheduler polls the calendar and sends reminders for events entering the
// notification window. Only it writes to the dedup store.
type Scheduler struct {
	calendar Calendar
	sender   Sender
	store    Notified
	chatID   int64

	interval   time.Duration
	threshold  int
	maxResults int
	location   *time.Location
	now        func() time.Time
	logger     logger.Logger

	mu         sync.Mutex
	lastTick   time.Time
	lastResult TickResult
}

// New creates a Scheduler that reminds chatID.
func New(cal Calendar, sender Sender, store Notified, chatID int64, opts ...Option) *Scheduler {
	s := &Scheduler{
		calendar:   cal,
		sender:     sender,
		store:      store,
		chatID:     chatID,
		interval:   defaultInterval,
		threshold:  defaultThreshold,
		maxResults: defaultMaxResults,
		location:   time.Local,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("reminder")
	}
	return s
}

// Run ticks once immediately, then every interval until ctx is cancelled.
// Overlapping ticks are skipped.
func (s *Scheduler) Run(ctx context.Context) error {
	cl := logger.Bridge(s.logger)
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	c.Schedule(cron.Every(s.interval), cron.FuncJob(func() {
		s.Tick(ctx)
	}))

	s.logger.Info(ctx, "reminder scheduler started",
		logger.Duration("interval", s.interval),
		logger.Int("threshold_minutes", s.threshold),
	)
	s.Tick(ctx)

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()

	s.logger.Info(ctx, "reminder scheduler stopped")
	return nil
}

// Tick fetches upcoming events and reminds those inside the window that
// were not reminded before. A failed send leaves the event for the next tick.
func (s *Scheduler) Tick(ctx context.Context) TickResult {
	started := time.Now()
	now := s.now()
	log := s.logger
	tickID := uuid.NewString()

	var res TickResult
	defer func() {
		metrics.RecordReminderTick(time.Since(started).Seconds(), now.Unix())
		s.mu.Lock()
		s.lastTick = now
		s.lastResult = res
		s.mu.Unlock()
	}()

	events, err := s.calendar.ListUpcoming(ctx, now, s.maxResults)
	if err != nil {
		metrics.RecordCalendarFetchError("reminder")
		log.Error(ctx, "calendar fetch failed, skipping tick",
			logger.String("tick_id", tickID),
			logger.Error(err),
		)
		res.Err = err
		return res
	}
	res.Fetched = len(events)
	metrics.UpdateCalendarEventsLoaded(len(events))

	for _, ev := range events {
		if ctx.Err() != nil {
			res.Err = ctx.Err()
			break
		}
		if ev.AllDay {
			res.Skipped++
			continue
		}
		minutes := model.MinutesUntil(ev.Start, now)
		if !model.Eligible(minutes, s.threshold) {
			res.Skipped++
			continue
		}
		if s.store.Contains(ctx, ev.ID) {
			res.Skipped++
			continue
		}
		res.Eligible++

		if err := s.sender.Send(ctx, s.chatID, FormatReminder(ev, minutes, s.location)); err != nil {
			res.Failed++
			metrics.RecordReminderSendFailure()
			log.Warn(ctx, "reminder send failed, will retry next tick",
				logger.String("tick_id", tickID),
				logger.String("event_id", ev.ID),
				logger.Error(err),
			)
			continue
		}
		res.Sent++
		metrics.RecordReminderSent()

		// Persist failures are logged by the store; memory still blocks a resend.
		_ = s.store.Add(ctx, ev.ID)

		log.Info(ctx, "reminder sent",
			logger.String("tick_id", tickID),
			logger.String("event_id", ev.ID),
			logger.Time("starts_at", ev.Start),
			logger.Int("minutes_until", minutes),
		)
	}

	log.Debug(ctx, "tick complete",
		logger.String("tick_id", tickID),
		logger.Int("fetched", res.Fetched),
		logger.Int("sent", res.Sent),
		logger.Int("failed", res.Failed),
		logger.Int("skipped", res.Skipped),
	)
	return res
}

// Last returns the time and result of the most recent tick.
func (s *Scheduler) Last() (time.Time, TickResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTick, s.lastResult
}
