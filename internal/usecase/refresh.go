package usecase

import (
	"context"
	"sync"
	"time"

	applogger "RiskLens/pkg/logger"
	"RiskLens/pkg/queue"
)

// RefreshMessageType routes refresh requests through the Redis queue.
const RefreshMessageType = "scoring.refresh"

// RefreshPayload is the queued refresh request.
type RefreshPayload struct {
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

// RefreshJob runs a scoring pass for each queued refresh request.
// Queueing serializes bursts: overlapping triggers line up behind the
// pipeline's run lock instead of racing.
type RefreshJob struct {
	pipeline *ScoringPipeline
	l        *applogger.Logger
}

func NewRefreshJob(pipeline *ScoringPipeline, l *applogger.Logger) *RefreshJob {
	return &RefreshJob{pipeline: pipeline, l: l}
}

func (j *RefreshJob) Name() string { return "scoring_refresh" }
func (j *RefreshJob) Type() string { return RefreshMessageType }

func (j *RefreshJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[RefreshPayload](payload)
	if err != nil {
		return err
	}
	j.l.Info("refresh requested", applogger.String("reason", p.Reason))
	_, err = j.pipeline.Run(ctx)
	return err
}

var _ queue.Job = (*RefreshJob)(nil)

// RefreshScheduler enqueues a periodic refresh and exposes Trigger for
// on-demand requests from the API.
type RefreshScheduler struct {
	queue    queue.QueueService
	interval time.Duration
	l        *applogger.Logger

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
}

func NewRefreshScheduler(q queue.QueueService, interval time.Duration, l *applogger.Logger) *RefreshScheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &RefreshScheduler{queue: q, interval: interval, l: l, stopCh: make(chan struct{})}
}

// Trigger enqueues one refresh request.
func (s *RefreshScheduler) Trigger(ctx context.Context, reason string) error {
	return s.queue.PublishMessage(ctx, RefreshMessageType, RefreshPayload{
		Reason:      reason,
		RequestedAt: time.Now().UTC(),
	})
}

// Start launches the periodic trigger loop. The first refresh fires
// immediately so a fresh deployment scores without waiting an interval.
func (s *RefreshScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	go func() {
		if err := s.Trigger(ctx, "startup"); err != nil {
			s.l.Error("startup refresh enqueue failed", applogger.Error(err))
		}
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-ticker.C:
				if err := s.Trigger(ctx, "scheduled"); err != nil {
					s.l.Error("scheduled refresh enqueue failed", applogger.Error(err))
				}
			}
		}
	}()
}

func (s *RefreshScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.started = false
	close(s.stopCh)
}
