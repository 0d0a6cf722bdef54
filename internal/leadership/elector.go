// Package leadership elects a single active processing instance among the
// concurrently open sessions of one account. The election is advisory: the
// slot is a plain shared key with a claim broadcast, not a lock. Two
// instances starting inside the same propagation window can both briefly
// believe they lead; consumers treat leadership as a hint to suppress
// duplicate work, never as a correctness guarantee.
package leadership

import (
	"context"
	"sync"

	"outreach_backend/internal/events"
	"outreach_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// State of this instance in the election.
type State string

const (
	StateUnclaimed State = "unclaimed"
	StateLeader    State = "leader"
	StateFollower  State = "follower"
)

type Elector struct {
	rdb          *redis.Client
	slotKey      string
	claimChannel string
	ownerID      string
	bus          events.Bus
	log          *logger.Logger

	mu    sync.RWMutex
	state State

	sub  *redis.PubSub
	done chan struct{}
}

func New(rdb *redis.Client, accountHandle string, bus events.Bus, log *logger.Logger) *Elector {
	return &Elector{
		rdb:          rdb,
		slotKey:      "outreach:" + accountHandle + ":leader",
		claimChannel: "outreach:" + accountHandle + ":leader-claims",
		ownerID:      uuid.NewString(),
		bus:          bus,
		log:          log,
		state:        StateUnclaimed,
	}
}

// OwnerID returns this instance's unique election identity.
func (e *Elector) OwnerID() string {
	return e.ownerID
}

// State returns the current election state of this instance.
func (e *Elector) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// IsLeader reports whether this instance currently believes it leads.
func (e *Elector) IsLeader() bool {
	return e.State() == StateLeader
}

// Start claims leadership: it writes this instance's owner ID into the
// shared slot and broadcasts the claim, then watches for foreign claims.
// Observing a foreign claim demotes this instance to Follower; a Follower
// never re-claims.
func (e *Elector) Start(ctx context.Context) error {
	// Subscribe before claiming so a racing claim is never missed.
	e.sub = e.rdb.Subscribe(ctx, e.claimChannel)
	if _, err := e.sub.Receive(ctx); err != nil {
		return err
	}

	if err := e.rdb.Set(ctx, e.slotKey, e.ownerID, 0).Err(); err != nil {
		_ = e.sub.Close()
		return err
	}
	if err := e.rdb.Publish(ctx, e.claimChannel, e.ownerID).Err(); err != nil {
		_ = e.sub.Close()
		return err
	}

	e.mu.Lock()
	e.state = StateLeader
	e.mu.Unlock()
	e.log.LeadershipEvent("claimed", e.ownerID)
	e.notifyChanged(ctx, StateLeader)

	e.done = make(chan struct{})
	go e.watch()

	return nil
}

func (e *Elector) notifyChanged(ctx context.Context, state State) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(ctx, events.LeadershipChanged{
		BaseEvent: events.NewBaseEvent(),
		State:     string(state),
	})
}

func (e *Elector) watch() {
	defer close(e.done)

	for msg := range e.sub.Channel() {
		if msg.Payload == "" || msg.Payload == e.ownerID {
			continue
		}

		e.mu.Lock()
		wasLeader := e.state == StateLeader
		e.state = StateFollower
		e.mu.Unlock()

		if wasLeader {
			e.log.LeadershipEvent("demoted", msg.Payload)
			e.notifyChanged(context.Background(), StateFollower)
		}
	}
}

// Shutdown stops watching and, if this instance still owns the slot,
// clears it so the account returns to Unclaimed.
func (e *Elector) Shutdown(ctx context.Context) error {
	if e.sub != nil {
		_ = e.sub.Close()
		if e.done != nil {
			<-e.done
		}
	}

	owner, err := e.rdb.Get(ctx, e.slotKey).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	if owner == e.ownerID {
		if err := e.rdb.Del(ctx, e.slotKey).Err(); err != nil {
			return err
		}
		e.log.LeadershipEvent("released", e.ownerID)
	}

	e.mu.Lock()
	e.state = StateUnclaimed
	e.mu.Unlock()

	return nil
}
