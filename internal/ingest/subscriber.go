package ingest

import (
	"context"
	"encoding/json"
	"sync"

	analysisservice "outreach_backend/internal/analysis/service"
	"outreach_backend/internal/events"
	"outreach_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

// scoringQueueSize bounds the backlog of pending scoring requests so a slow
// classifier never blocks the stream reader.
const scoringQueueSize = 64

// Scorer re-scores one prospect. Satisfied by the analysis service.
type Scorer interface {
	ScoreContact(ctx context.Context, contactID string) (analysisservice.ScoreOutcome, error)
}

// StaleMarker invalidates the ranked conversation view.
type StaleMarker interface {
	MarkStale()
}

// LeadershipSignal reports whether this instance currently leads.
// Leadership is advisory; followers still process events, the signal is
// only used to flag potential duplicate work in the logs.
type LeadershipSignal interface {
	IsLeader() bool
}

// Subscriber consumes the account's message stream plus the batch report
// channel. The pub/sub reader only decodes and dispatches; scoring runs on a
// separate consumer goroutine fed through a bounded channel, so the
// subscription callback never blocks on the classifier and scoring errors
// never reach the subscription. Batch reports from the worker process are
// republished on the local bus so the SSE hub can push them to sessions.
type Subscriber struct {
	rdb        *redis.Client
	msgChannel string
	repChannel string
	scorer     Scorer
	stale      StaleMarker
	leader     LeadershipSignal
	bus        events.Bus
	log        *logger.Logger

	sub      *redis.PubSub
	requests chan string
	wg       sync.WaitGroup
}

func NewSubscriber(rdb *redis.Client, accountHandle string, scorer Scorer, stale StaleMarker, leader LeadershipSignal, bus events.Bus, log *logger.Logger) *Subscriber {
	return &Subscriber{
		rdb:        rdb,
		msgChannel: StreamChannel(accountHandle),
		repChannel: ReportChannel(accountHandle),
		scorer:     scorer,
		stale:      stale,
		leader:     leader,
		bus:        bus,
		log:        log,
	}
}

// Start subscribes to the stream and launches the reader and the scoring
// consumer.
func (s *Subscriber) Start(ctx context.Context) error {
	s.sub = s.rdb.Subscribe(ctx, s.msgChannel, s.repChannel)
	if _, err := s.sub.Receive(ctx); err != nil {
		return err
	}

	s.requests = make(chan string, scoringQueueSize)

	s.wg.Add(2)
	go s.readLoop()
	go s.scoreLoop(ctx)

	return nil
}

// Close unsubscribes and waits for in-flight work to drain.
func (s *Subscriber) Close() {
	if s.sub == nil {
		return
	}
	_ = s.sub.Close()
	s.wg.Wait()
}

func (s *Subscriber) readLoop() {
	defer s.wg.Done()
	defer close(s.requests)

	for msg := range s.sub.Channel() {
		if msg.Channel == s.repChannel {
			s.handleReport(msg.Payload)
			continue
		}

		var event StreamEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			s.log.Error("dropping undecodable stream event", "error", err)
			continue
		}
		if event.Table != TableMessages || event.Op != OpInsert {
			continue
		}

		// Any new message changes the conversation list.
		s.stale.MarkStale()

		if event.Row.Direction != DirectionInbound {
			continue
		}

		select {
		case s.requests <- event.Row.ContactID:
		default:
			s.log.Warn("scoring queue full, dropping request", "contact_id", event.Row.ContactID)
		}
	}
}

// handleReport republishes a worker-side batch report on the local bus. The
// notification module picks it up and pushes it to connected sessions.
func (s *Subscriber) handleReport(payload string) {
	var report ReportEvent
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		s.log.Error("dropping undecodable report event", "error", err)
		return
	}

	s.log.Info("batch report received from worker",
		"attempted", report.Attempted,
		"scored", report.Scored,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)

	if s.bus == nil {
		return
	}
	ctx := context.Background()
	s.bus.Publish(ctx, events.ReanalysisCompleted{
		BaseEvent: events.NewBaseEvent(),
		Attempted: report.Attempted,
		Scored:    report.Scored,
		Skipped:   report.Skipped,
		Failed:    report.Failed,
	})
	s.bus.Publish(ctx, events.ConversationsStale{
		BaseEvent: events.NewBaseEvent(),
		Reason:    "reanalysis_completed",
	})
}

func (s *Subscriber) scoreLoop(ctx context.Context) {
	defer s.wg.Done()

	for contactID := range s.requests {
		if s.leader != nil && !s.leader.IsLeader() {
			s.log.Debug("scoring as follower, duplicate work possible", "contact_id", contactID)
		}

		outcome, err := s.scorer.ScoreContact(ctx, contactID)
		if err != nil {
			// Logged and swallowed: a later event or batch run retries.
			s.log.ClassificationError(contactID, err)
			continue
		}

		switch outcome.Status {
		case analysisservice.StatusScored:
			s.log.Info("contact re-scored",
				"contact_id", contactID,
				"match_points", outcome.Result.MatchPoints,
			)
		default:
			s.log.Debug("scoring skipped", "contact_id", contactID, "status", string(outcome.Status))
		}
	}
}
