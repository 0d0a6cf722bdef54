package service

import (
	"context"
	"time"

	"outreach_backend/internal/events"
)

// Run report outcomes, one line per contact in processing order.
const (
	OutcomeSuccess = "success"
	OutcomeSkipped = "skipped"
	OutcomeFailure = "failure"
)

// RunReportLine records the outcome for one contact.
type RunReportLine struct {
	ContactID   string `json:"contactId"`
	Outcome     string `json:"outcome"`
	MatchPoints int    `json:"matchPoints,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// RunReport aggregates a full batch reanalysis run. It is returned only
// after every conversation has been attempted.
type RunReport struct {
	Reason     string          `json:"reason,omitempty"`
	Attempted  int             `json:"attempted"`
	Succeeded  int             `json:"succeeded"`
	Scored     int             `json:"scored"`
	Skipped    int             `json:"skipped"`
	Failed     int             `json:"failed"`
	StartedAt  time.Time       `json:"startedAt"`
	FinishedAt time.Time       `json:"finishedAt"`
	Lines      []RunReportLine `json:"lines"`
}

// ReanalyzeAll re-scores every open conversation, strictly sequentially.
// The classifier is an external rate-limited dependency; sequencing trades
// wall-clock time for bounded load. A single contact's failure is recorded
// and never aborts the run.
func (s *Service) ReanalyzeAll(ctx context.Context) (RunReport, error) {
	report := RunReport{StartedAt: time.Now(), Lines: make([]RunReportLine, 0)}

	if len(s.traits.Enabled()) == 0 {
		report.Reason = string(StatusNoTraitsConfigured)
		report.FinishedAt = time.Now()
		return report, nil
	}

	contactIDs, err := s.messages.ListContactIDs(ctx)
	if err != nil {
		s.log.DatabaseError("analysis.list_contacts", err)
		report.FinishedAt = time.Now()
		return report, err
	}

	for _, contactID := range contactIDs {
		report.Attempted++

		outcome, err := s.ScoreContact(ctx, contactID)
		switch {
		case err != nil:
			report.Failed++
			report.Lines = append(report.Lines, RunReportLine{
				ContactID: contactID,
				Outcome:   OutcomeFailure,
				Detail:    err.Error(),
			})
		case outcome.Status == StatusNothingToAnalyze:
			report.Skipped++
			report.Lines = append(report.Lines, RunReportLine{
				ContactID: contactID,
				Outcome:   OutcomeSkipped,
				Detail:    "no inbound text",
			})
		case outcome.Status == StatusNoTraitsConfigured:
			// Criteria were disabled mid-run; record and keep going.
			report.Skipped++
			report.Lines = append(report.Lines, RunReportLine{
				ContactID: contactID,
				Outcome:   OutcomeSkipped,
				Detail:    "no traits configured",
			})
		default:
			report.Succeeded++
			if outcome.Result.MatchPoints > 0 {
				report.Scored++
			}
			report.Lines = append(report.Lines, RunReportLine{
				ContactID:   contactID,
				Outcome:     OutcomeSuccess,
				MatchPoints: outcome.Result.MatchPoints,
			})
		}
	}

	report.FinishedAt = time.Now()
	s.notifyReanalyzed(ctx, report)

	return report, nil
}

func (s *Service) notifyReanalyzed(ctx context.Context, report RunReport) {
	if s.bus == nil {
		return
	}
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
