package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueCritical carries user-facing mail and is polled twice as often.
	QueueCritical = "critical"
	// QueueDefault carries notifications and maintenance.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskQueryAssigned notifies an employee about a newly assigned query.
	TaskQueryAssigned = "queries:assigned"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// QueuePriorities are the asynq queue weights served by the worker.
var QueuePriorities = map[string]int{
	QueueCritical: 6,
	QueueDefault:  3,
}

// QueueNames lists the served queues in a stable order.
func QueueNames() []string {
	names := make([]string, 0, len(QueuePriorities))
	for name := range QueuePriorities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	HTML    bool   `json:"html,omitempty"`
}

// QueryAssignedPayload identifies the assignment to announce.
type QueryAssignedPayload struct {
	QueryID    int64 `json:"query_id"`
	EmployeeID int64 `json:"employee_id"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	return newTask(TaskTypeSendEmail, payload, asynq.MaxRetry(5), asynq.Timeout(30*time.Second), asynq.Queue(QueueCritical))
}

// NewQueryAssignedTask constructs the assignment notification task.
func NewQueryAssignedTask(payload QueryAssignedPayload) (*asynq.Task, error) {
	return newTask(TaskQueryAssigned, payload, asynq.MaxRetry(3), asynq.Queue(QueueDefault))
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil, asynq.MaxRetry(1), asynq.Queue(QueueDefault), asynq.Unique(time.Hour))
}

func newTask(typename string, payload any, opts ...asynq.Option) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", typename, err)
	}
	return asynq.NewTask(typename, data, opts...), nil
}

// ErrUnknownTask is returned by Client.Trigger for names outside ManualTaskNames.
var ErrUnknownTask = errors.New("unknown task")

// manualTasks lists the tasks that can be triggered without a payload.
var manualTasks = map[string]func() *asynq.Task{
	TaskIdempotencyCleanup: NewIdempotencyCleanupTask,
}

// ManualTaskNames returns the names accepted by Client.Trigger.
func ManualTaskNames() []string {
	names := make([]string, 0, len(manualTasks))
	for name := range manualTasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
