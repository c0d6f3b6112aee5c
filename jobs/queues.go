package jobs

import (
	"errors"

	"github.com/hibiken/asynq"
)

// QueueInspector reports queue statistics; *asynq.Inspector satisfies it.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// QueueStats is the depth of one queue.
type QueueStats struct {
	Queue     string `json:"queue"`
	Paused    bool   `json:"paused"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
	Processed int    `json:"processed_today"`
	Failed    int    `json:"failed_today"`
}

// Snapshot reads every served queue. A queue that has never received a task
// reports zeros instead of an error.
func Snapshot(inspector QueueInspector) ([]QueueStats, error) {
	if inspector == nil {
		return nil, errors.New("jobs: inspector not configured")
	}
	out := make([]QueueStats, 0, len(QueuePriorities))
	for _, name := range QueueNames() {
		stats := QueueStats{Queue: name}
		info, err := inspector.GetQueueInfo(name)
		if err != nil && !errors.Is(err, asynq.ErrQueueNotFound) {
			return nil, err
		}
		if err == nil && info != nil {
			stats.Paused = info.Paused
			stats.Pending = info.Pending
			stats.Active = info.Active
			stats.Scheduled = info.Scheduled
			stats.Retry = info.Retry
			stats.Archived = info.Archived
			stats.Processed = info.Processed
			stats.Failed = info.Failed
		}
		out = append(out, stats)
	}
	return out, nil
}
