package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	analysisrepo "outreach_backend/internal/analysis/repository"
	messagerepo "outreach_backend/internal/messages/repository"
	"outreach_backend/platform/logger"
)

type fakeMessageLister struct {
	mu    sync.Mutex
	msgs  []messagerepo.Message
	err   error
	calls int
	block chan struct{}
}

func (f *fakeMessageLister) ListAll(_ context.Context) ([]messagerepo.Message, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.msgs, nil
}

func (f *fakeMessageLister) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeAnalysisLister struct {
	results []analysisrepo.AnalysisResult
}

func (f *fakeAnalysisLister) ListAll(_ context.Context) ([]analysisrepo.AnalysisResult, error) {
	return f.results, nil
}

func TestRankedReloadsOnlyWhenStale(t *testing.T) {
	messages := &fakeMessageLister{msgs: []messagerepo.Message{
		msgAt("p1", messagerepo.DirectionInbound, 0),
	}}
	svc := New(messages, &fakeAnalysisLister{}, logger.New("test"))

	if _, err := svc.Ranked(context.Background()); err != nil {
		t.Fatalf("Ranked returned error: %v", err)
	}
	if _, err := svc.Ranked(context.Background()); err != nil {
		t.Fatalf("Ranked returned error: %v", err)
	}
	if messages.callCount() != 1 {
		t.Fatalf("expected a single reload, got %d", messages.callCount())
	}

	svc.MarkStale()
	if _, err := svc.Ranked(context.Background()); err != nil {
		t.Fatalf("Ranked returned error: %v", err)
	}
	if messages.callCount() != 2 {
		t.Fatalf("expected reload after MarkStale, got %d calls", messages.callCount())
	}
}

func TestRankedConcurrentReloadShortCircuits(t *testing.T) {
	block := make(chan struct{})
	messages := &fakeMessageLister{
		msgs:  []messagerepo.Message{msgAt("p1", messagerepo.DirectionInbound, 0)},
		block: block,
	}
	svc := New(messages, &fakeAnalysisLister{}, logger.New("test"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.Ranked(context.Background())
	}()

	// Wait until the first reload is in flight.
	deadline := time.Now().Add(2 * time.Second)
	for messages.callCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first reload never started")
		}
		time.Sleep(time.Millisecond)
	}

	// A concurrent read must not start a second reload.
	ranked, err := svc.Ranked(context.Background())
	if err != nil {
		t.Fatalf("concurrent Ranked returned error: %v", err)
	}
	if ranked != nil {
		t.Fatalf("expected the empty previous view during reload, got %d items", len(ranked))
	}
	if messages.callCount() != 1 {
		t.Fatalf("concurrent read must not start a second reload, got %d calls", messages.callCount())
	}

	close(block)
	<-done
}

func TestRankedServesStaleViewOnReloadFailure(t *testing.T) {
	messages := &fakeMessageLister{msgs: []messagerepo.Message{
		msgAt("p1", messagerepo.DirectionInbound, 0),
	}}
	svc := New(messages, &fakeAnalysisLister{}, logger.New("test"))

	first, err := svc.Ranked(context.Background())
	if err != nil {
		t.Fatalf("Ranked returned error: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(first))
	}

	messages.err = errors.New("db down")
	svc.MarkStale()

	second, err := svc.Ranked(context.Background())
	if err != nil {
		t.Fatalf("reload failure must serve the stale view, got error: %v", err)
	}
	if len(second) != 1 {
		t.Fatalf("expected the stale view, got %d conversations", len(second))
	}
}

func TestRankedFailsWithoutAnyView(t *testing.T) {
	messages := &fakeMessageLister{err: errors.New("db down")}
	svc := New(messages, &fakeAnalysisLister{}, logger.New("test"))

	if _, err := svc.Ranked(context.Background()); err == nil {
		t.Fatal("expected error when no prior view exists")
	}
}
