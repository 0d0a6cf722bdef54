package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"outreach_backend/internal/analysis/repository"
	messagerepo "outreach_backend/internal/messages/repository"
	traitrepo "outreach_backend/internal/traits/repository"
	"outreach_backend/platform/ai/classifier"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeMessages struct {
	byContact  map[string][]messagerepo.Message
	contactIDs []string
	listErr    error
}

func (f *fakeMessages) ListByContact(_ context.Context, contactID string) ([]messagerepo.Message, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.byContact[contactID], nil
}

func (f *fakeMessages) ListContactIDs(_ context.Context) ([]string, error) {
	return f.contactIDs, nil
}

type fakeTraits struct {
	enabled []traitrepo.TraitCriterion
}

func (f *fakeTraits) Enabled() []traitrepo.TraitCriterion {
	return f.enabled
}

type fakeClassifier struct {
	verdict  classifier.Verdict
	err      error
	failWhen string
	calls    int
	lastText string
}

func (f *fakeClassifier) Analyze(_ context.Context, text string, _ []classifier.Trait) (classifier.Verdict, error) {
	f.calls++
	f.lastText = text
	if f.err != nil {
		return classifier.Verdict{}, f.err
	}
	if f.failWhen != "" && strings.Contains(text, f.failWhen) {
		return classifier.Verdict{}, classifier.ErrUpstream
	}
	return f.verdict, nil
}

type fakeStore struct {
	results   map[string]repository.AnalysisResult
	upsertErr error
	upserts   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{results: make(map[string]repository.AnalysisResult)}
}

func (f *fakeStore) Get(_ context.Context, contactID string) (repository.AnalysisResult, error) {
	result, ok := f.results[contactID]
	if !ok {
		return repository.AnalysisResult{}, repository.ErrNotFound
	}
	return result, nil
}

func (f *fakeStore) Upsert(_ context.Context, result repository.AnalysisResult) (repository.AnalysisResult, error) {
	if f.upsertErr != nil {
		return repository.AnalysisResult{}, f.upsertErr
	}
	f.upserts++
	f.results[result.ContactID] = result
	return result, nil
}

func (f *fakeStore) ListAll(_ context.Context) ([]repository.AnalysisResult, error) {
	out := make([]repository.AnalysisResult, 0, len(f.results))
	for _, result := range f.results {
		out = append(out, result)
	}
	return out, nil
}

func testCriteria(texts ...string) []traitrepo.TraitCriterion {
	criteria := make([]traitrepo.TraitCriterion, 0, len(texts))
	for i, text := range texts {
		criteria = append(criteria, traitrepo.TraitCriterion{
			ID:       uuid.New(),
			Text:     text,
			Enabled:  true,
			Position: i,
		})
	}
	return criteria
}

func inbound(contactID, text string, offset time.Duration) messagerepo.Message {
	return messagerepo.Message{
		ID:         uuid.New(),
		ContactID:  contactID,
		Direction:  messagerepo.DirectionInbound,
		Text:       text,
		OccurredAt: time.Now().Add(offset),
	}
}

func outbound(contactID, text string, offset time.Duration) messagerepo.Message {
	msg := inbound(contactID, text, offset)
	msg.Direction = messagerepo.DirectionOutbound
	return msg
}

func newTestService(msgs *fakeMessages, traits *fakeTraits, clf *fakeClassifier, store *fakeStore) *Service {
	return New(msgs, traits, clf, store, nil, logger.New("test"))
}

func TestScoreContactNoTraitsConfigured(t *testing.T) {
	clf := &fakeClassifier{}
	svc := newTestService(&fakeMessages{}, &fakeTraits{}, clf, newFakeStore())

	outcome, err := svc.ScoreContact(context.Background(), "prospect-1")
	if err != nil {
		t.Fatalf("ScoreContact returned error: %v", err)
	}
	if outcome.Status != StatusNoTraitsConfigured {
		t.Fatalf("expected %s, got %s", StatusNoTraitsConfigured, outcome.Status)
	}
	if clf.calls != 0 {
		t.Fatalf("classifier must not be called without enabled criteria, got %d calls", clf.calls)
	}
}

func TestScoreContactNothingToAnalyze(t *testing.T) {
	msgs := &fakeMessages{byContact: map[string][]messagerepo.Message{
		"prospect-1": {
			outbound("prospect-1", "hoi, interesse?", 0),
			inbound("prospect-1", "   ", time.Minute),
		},
	}}
	clf := &fakeClassifier{}
	store := newFakeStore()
	svc := newTestService(msgs, &fakeTraits{enabled: testCriteria("asks about pricing")}, clf, store)

	outcome, err := svc.ScoreContact(context.Background(), "prospect-1")
	if err != nil {
		t.Fatalf("ScoreContact returned error: %v", err)
	}
	if outcome.Status != StatusNothingToAnalyze {
		t.Fatalf("expected %s, got %s", StatusNothingToAnalyze, outcome.Status)
	}
	if clf.calls != 0 {
		t.Fatalf("classifier must not be called without inbound text, got %d calls", clf.calls)
	}
	if store.upserts != 0 {
		t.Fatalf("nothing should be persisted, got %d upserts", store.upserts)
	}
}

func TestScoreContactExcludesOutboundText(t *testing.T) {
	msgs := &fakeMessages{byContact: map[string][]messagerepo.Message{
		"prospect-1": {
			inbound("prospect-1", "wat kost het?", 0),
			outbound("prospect-1", "goede vraag!", time.Minute),
			inbound("prospect-1", "ik heb een bedrijf", 2*time.Minute),
		},
	}}
	clf := &fakeClassifier{verdict: classifier.Verdict{MetTraitIndices: []int{0}, Confidence: 0.9}}
	svc := newTestService(msgs, &fakeTraits{enabled: testCriteria("asks about pricing")}, clf, newFakeStore())

	if _, err := svc.ScoreContact(context.Background(), "prospect-1"); err != nil {
		t.Fatalf("ScoreContact returned error: %v", err)
	}
	if clf.lastText != "wat kost het? ik heb een bedrijf" {
		t.Fatalf("unexpected classifier input: %q", clf.lastText)
	}
}

func TestScoreContactNormalizesVerdict(t *testing.T) {
	msgs := &fakeMessages{byContact: map[string][]messagerepo.Message{
		"prospect-1": {
			inbound("prospect-1", "wat kost het? ik heb een bedrijf", 0),
			outbound("prospect-1", "leuk!", time.Minute),
		},
	}}
	// Rogue verdict: duplicates, out-of-range indices, confidence above 1.
	clf := &fakeClassifier{verdict: classifier.Verdict{
		MetTraitIndices: []int{2, 0, 2, 9, -1},
		Confidence:      1.7,
	}}
	store := newFakeStore()
	svc := newTestService(msgs, &fakeTraits{enabled: testCriteria(
		"asks about pricing", "owns a business", "based in the Netherlands",
	)}, clf, store)

	outcome, err := svc.ScoreContact(context.Background(), "prospect-1")
	if err != nil {
		t.Fatalf("ScoreContact returned error: %v", err)
	}
	if outcome.Status != StatusScored {
		t.Fatalf("expected %s, got %s", StatusScored, outcome.Status)
	}

	result := outcome.Result
	if result.MatchPoints != 2 {
		t.Fatalf("expected 2 match points, got %d", result.MatchPoints)
	}
	if len(result.MetTraitIndices) != 2 || result.MetTraitIndices[0] != 0 || result.MetTraitIndices[1] != 2 {
		t.Fatalf("unexpected indices: %v", result.MetTraitIndices)
	}
	if result.MetTraits[0] != "asks about pricing" || result.MetTraits[1] != "based in the Netherlands" {
		t.Fatalf("unexpected met traits: %v", result.MetTraits)
	}
	if result.Confidence != 1 {
		t.Fatalf("confidence must be clamped to 1, got %v", result.Confidence)
	}
	if result.MessageCountAtAnalysis != 2 {
		t.Fatalf("expected message count 2, got %d", result.MessageCountAtAnalysis)
	}
	if _, ok := store.results["prospect-1"]; !ok {
		t.Fatal("result was not persisted")
	}
}

func TestScoreContactZeroMatchesIsStillScored(t *testing.T) {
	msgs := &fakeMessages{byContact: map[string][]messagerepo.Message{
		"prospect-1": {inbound("prospect-1", "laat me met rust", 0)},
	}}
	clf := &fakeClassifier{verdict: classifier.Verdict{MetTraitIndices: []int{}, Confidence: 0.95}}
	store := newFakeStore()
	svc := newTestService(msgs, &fakeTraits{enabled: testCriteria("asks about pricing")}, clf, store)

	outcome, err := svc.ScoreContact(context.Background(), "prospect-1")
	if err != nil {
		t.Fatalf("ScoreContact returned error: %v", err)
	}
	if outcome.Status != StatusScored {
		t.Fatalf("expected %s, got %s", StatusScored, outcome.Status)
	}
	if outcome.Result.MatchPoints != 0 {
		t.Fatalf("expected 0 match points, got %d", outcome.Result.MatchPoints)
	}
	if store.upserts != 1 {
		t.Fatalf("zero-match result must still be persisted, got %d upserts", store.upserts)
	}
}

func TestScoreContactClassifierTimeoutKeepsStoredResult(t *testing.T) {
	store := newFakeStore()
	prior := repository.AnalysisResult{ContactID: "prospect-1", MatchPoints: 3, AnalyzedAt: time.Now()}
	store.results["prospect-1"] = prior

	msgs := &fakeMessages{byContact: map[string][]messagerepo.Message{
		"prospect-1": {inbound("prospect-1", "hoi", 0)},
	}}
	clf := &fakeClassifier{err: classifier.ErrTimeout}
	svc := newTestService(msgs, &fakeTraits{enabled: testCriteria("asks about pricing")}, clf, store)

	_, err := svc.ScoreContact(context.Background(), "prospect-1")
	if err == nil {
		t.Fatal("expected error from classifier timeout")
	}

	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindTimeout {
		t.Fatalf("expected KindTimeout, got %v", err)
	}

	stored, getErr := store.Get(context.Background(), "prospect-1")
	if getErr != nil {
		t.Fatalf("Get returned error: %v", getErr)
	}
	if stored.MatchPoints != prior.MatchPoints {
		t.Fatalf("prior result must stay authoritative, got %d points", stored.MatchPoints)
	}
}

func TestScoreContactIdempotentForUnchangedInput(t *testing.T) {
	msgs := &fakeMessages{byContact: map[string][]messagerepo.Message{
		"prospect-1": {inbound("prospect-1", "wat kost het?", 0)},
	}}
	clf := &fakeClassifier{verdict: classifier.Verdict{MetTraitIndices: []int{0}, Confidence: 0.8}}
	store := newFakeStore()
	svc := newTestService(msgs, &fakeTraits{enabled: testCriteria("asks about pricing")}, clf, store)

	first, err := svc.ScoreContact(context.Background(), "prospect-1")
	if err != nil {
		t.Fatalf("first ScoreContact returned error: %v", err)
	}
	second, err := svc.ScoreContact(context.Background(), "prospect-1")
	if err != nil {
		t.Fatalf("second ScoreContact returned error: %v", err)
	}

	if first.Result.MatchPoints != second.Result.MatchPoints {
		t.Fatalf("match points diverged: %d vs %d", first.Result.MatchPoints, second.Result.MatchPoints)
	}
	if len(store.results) != 1 {
		t.Fatalf("expected a single row per contact, got %d", len(store.results))
	}
}

func TestScoreContactRescoreAfterCriteriaChange(t *testing.T) {
	msgs := &fakeMessages{byContact: map[string][]messagerepo.Message{
		"prospect-1": {inbound("prospect-1", "wat kost het? ik heb een bedrijf", 0)},
	}}
	traits := &fakeTraits{enabled: testCriteria("asks about pricing", "owns a business")}
	clf := &fakeClassifier{verdict: classifier.Verdict{MetTraitIndices: []int{0, 1}, Confidence: 0.9}}
	store := newFakeStore()
	svc := newTestService(msgs, traits, clf, store)

	first, err := svc.ScoreContact(context.Background(), "prospect-1")
	if err != nil {
		t.Fatalf("ScoreContact returned error: %v", err)
	}
	if first.Result.MatchPoints != 2 {
		t.Fatalf("expected 2 match points, got %d", first.Result.MatchPoints)
	}

	// Operator disables the second criterion; the new row fully replaces the
	// old one.
	traits.enabled = testCriteria("asks about pricing")
	clf.verdict = classifier.Verdict{MetTraitIndices: []int{0}, Confidence: 0.9}

	second, err := svc.ScoreContact(context.Background(), "prospect-1")
	if err != nil {
		t.Fatalf("ScoreContact returned error: %v", err)
	}
	if second.Result.MatchPoints != 1 {
		t.Fatalf("expected 1 match point after criteria change, got %d", second.Result.MatchPoints)
	}
	if len(second.Result.MetTraits) != 1 || second.Result.MetTraits[0] != "asks about pricing" {
		t.Fatalf("unexpected met traits: %v", second.Result.MetTraits)
	}
}

func TestGetNotFound(t *testing.T) {
	svc := newTestService(&fakeMessages{}, &fakeTraits{}, &fakeClassifier{}, newFakeStore())

	_, err := svc.Get(context.Background(), "unknown")
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindNotFound {
		t.Fatalf("expected KindNotFound, got %v", err)
	}
}
