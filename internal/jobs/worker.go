package jobs

import (
	"context"
	"fmt"

	analysisservice "outreach_backend/internal/analysis/service"
	"outreach_backend/internal/ingest"
	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// BatchRunner runs a full batch reanalysis. Satisfied by the analysis
// service.
type BatchRunner interface {
	ReanalyzeAll(ctx context.Context) (analysisservice.RunReport, error)
}

// ReportPublisher broadcasts a finished run on the account stream so the
// dashboard instances can deliver it over SSE. Satisfied by the ingest
// publisher.
type ReportPublisher interface {
	PublishReport(ctx context.Context, report ingest.ReportEvent) error
}

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	batch   BatchRunner
	reports ReportPublisher
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, batch BatchRunner, reports ReportPublisher, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:  server,
		mux:     mux,
		batch:   batch,
		reports: reports,
		log:     log,
	}

	mux.HandleFunc(TaskReanalyzeAll, w.handleReanalyzeAll)

	return w, nil
}

func (w *Worker) handleReanalyzeAll(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseReanalyzeAllPayload(task)
	if err != nil {
		return err
	}

	w.log.Info("batch reanalysis started", "requested_by", payload.RequestedBy)

	report, err := w.batch.ReanalyzeAll(ctx)
	if err != nil {
		return err
	}

	w.log.Info("batch reanalysis finished",
		"requested_by", payload.RequestedBy,
		"attempted", report.Attempted,
		"succeeded", report.Succeeded,
		"scored", report.Scored,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)

	if w.reports != nil {
		if err := w.reports.PublishReport(ctx, ingest.ReportEvent{
			Attempted:   report.Attempted,
			Scored:      report.Scored,
			Skipped:     report.Skipped,
			Failed:      report.Failed,
			RequestedBy: payload.RequestedBy,
		}); err != nil {
			// The run itself succeeded; losing the push is not a task failure.
			w.log.Error("failed to broadcast batch report", "error", err)
		}
	}

	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("jobs worker stopped", "error", err)
	}
}
