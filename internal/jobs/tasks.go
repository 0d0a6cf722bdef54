package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskReanalyzeAll = "analysis.reanalyze_all"

type ReanalyzeAllPayload struct {
	RequestedBy string `json:"requestedBy"`
	Reason      string `json:"reason,omitempty"`
}

func NewReanalyzeAllTask(payload ReanalyzeAllPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReanalyzeAll, data), nil
}

func ParseReanalyzeAllPayload(task *asynq.Task) (ReanalyzeAllPayload, error) {
	var payload ReanalyzeAllPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ReanalyzeAllPayload{}, err
	}
	return payload, nil
}
