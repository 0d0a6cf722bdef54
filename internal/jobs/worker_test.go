package jobs

import (
	"context"
	"errors"
	"testing"

	analysisservice "outreach_backend/internal/analysis/service"
	"outreach_backend/internal/ingest"
	"outreach_backend/platform/logger"
)

type fakeBatch struct {
	report analysisservice.RunReport
	err    error
	runs   int
}

func (f *fakeBatch) ReanalyzeAll(_ context.Context) (analysisservice.RunReport, error) {
	f.runs++
	if f.err != nil {
		return analysisservice.RunReport{}, f.err
	}
	return f.report, nil
}

type fakeReportPublisher struct {
	published []ingest.ReportEvent
	err       error
}

func (f *fakeReportPublisher) PublishReport(_ context.Context, report ingest.ReportEvent) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, report)
	return nil
}

func TestHandleReanalyzeAllBroadcastsReport(t *testing.T) {
	batch := &fakeBatch{report: analysisservice.RunReport{
		Attempted: 5,
		Succeeded: 3,
		Scored:    2,
		Skipped:   2,
		Failed:    0,
	}}
	reports := &fakeReportPublisher{}
	w := &Worker{batch: batch, reports: reports, log: logger.New("test")}

	task, err := NewReanalyzeAllTask(ReanalyzeAllPayload{RequestedBy: "operator-1"})
	if err != nil {
		t.Fatalf("NewReanalyzeAllTask returned error: %v", err)
	}
	if err := w.handleReanalyzeAll(context.Background(), task); err != nil {
		t.Fatalf("handleReanalyzeAll returned error: %v", err)
	}

	if batch.runs != 1 {
		t.Fatalf("expected 1 batch run, got %d", batch.runs)
	}
	if len(reports.published) != 1 {
		t.Fatalf("expected the report to be broadcast once, got %d", len(reports.published))
	}
	got := reports.published[0]
	if got.Attempted != 5 || got.Scored != 2 || got.Skipped != 2 || got.Failed != 0 {
		t.Fatalf("report counters lost in transit: %+v", got)
	}
	if got.RequestedBy != "operator-1" {
		t.Fatalf("expected requester to travel with the report, got %q", got.RequestedBy)
	}
}

func TestHandleReanalyzeAllFailedBroadcastIsNotATaskFailure(t *testing.T) {
	batch := &fakeBatch{report: analysisservice.RunReport{Attempted: 1, Succeeded: 1}}
	reports := &fakeReportPublisher{err: errors.New("redis down")}
	w := &Worker{batch: batch, reports: reports, log: logger.New("test")}

	task, err := NewReanalyzeAllTask(ReanalyzeAllPayload{RequestedBy: "operator-1"})
	if err != nil {
		t.Fatalf("NewReanalyzeAllTask returned error: %v", err)
	}
	if err := w.handleReanalyzeAll(context.Background(), task); err != nil {
		t.Fatalf("a lost broadcast must not fail the task, got: %v", err)
	}
}

func TestHandleReanalyzeAllPropagatesBatchFailure(t *testing.T) {
	batch := &fakeBatch{err: errors.New("db down")}
	reports := &fakeReportPublisher{}
	w := &Worker{batch: batch, reports: reports, log: logger.New("test")}

	task, err := NewReanalyzeAllTask(ReanalyzeAllPayload{RequestedBy: "operator-1"})
	if err != nil {
		t.Fatalf("NewReanalyzeAllTask returned error: %v", err)
	}
	if err := w.handleReanalyzeAll(context.Background(), task); err == nil {
		t.Fatal("expected the batch failure to surface so asynq retries")
	}
	if len(reports.published) != 0 {
		t.Fatalf("a failed run must not broadcast a report, got %d", len(reports.published))
	}
}
