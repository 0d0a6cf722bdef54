package ingest

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// Publisher broadcasts message-insert notifications on the account stream.
// Every running instance, this one included, receives them through its
// Subscriber.
type Publisher struct {
	rdb      *redis.Client
	messages string
	reports  string
}

func NewPublisher(rdb *redis.Client, accountHandle string) *Publisher {
	return &Publisher{
		rdb:      rdb,
		messages: StreamChannel(accountHandle),
		reports:  ReportChannel(accountHandle),
	}
}

// PublishInsert announces a newly stored message.
func (p *Publisher) PublishInsert(ctx context.Context, row MessageRow) error {
	payload, err := json.Marshal(StreamEvent{
		Table: TableMessages,
		Op:    OpInsert,
		Row:   row,
	})
	if err != nil {
		return err
	}

	return p.rdb.Publish(ctx, p.messages, payload).Err()
}

// PublishReport announces a finished batch reanalysis run. The worker has no
// dashboard sessions of its own, so the report travels the account stream to
// whichever instances do.
func (p *Publisher) PublishReport(ctx context.Context, report ReportEvent) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return err
	}

	return p.rdb.Publish(ctx, p.reports, payload).Err()
}
