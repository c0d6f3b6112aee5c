package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
)

// Enqueuer is the subset of *asynq.Client used by Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client submits jobs to the queue.
type Client struct {
	client Enqueuer
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// NewClientWith wraps an existing enqueuer.
func NewClientWith(e Enqueuer) *Client {
	return &Client{client: e}
}

// EnqueueSendEmail enqueues a send-email task.
func (c *Client) EnqueueSendEmail(ctx context.Context, payload SendEmailPayload) (*asynq.TaskInfo, error) {
	task, err := NewSendEmailTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task)
}

// QueryAssigned enqueues the assignment notification.
func (c *Client) QueryAssigned(ctx context.Context, queryID, employeeID int64) error {
	task, err := NewQueryAssignedTask(QueryAssignedPayload{QueryID: queryID, EmployeeID: employeeID})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task)
	return err
}

// PasswordReset enqueues the reset link mail.
func (c *Client) PasswordReset(ctx context.Context, to, name, link string) error {
	body := fmt.Sprintf("Hello %s,\n\nUse the link below to choose a new password. It expires soon and can be used once.\n\n%s\n\nIf you did not request a reset you can ignore this message.\n", name, link)
	_, err := c.EnqueueSendEmail(ctx, SendEmailPayload{To: to, Subject: "Reset your AgroTrade password", Body: body})
	return err
}

// Trigger enqueues one of the payload-less maintenance tasks by name.
func (c *Client) Trigger(ctx context.Context, name string) (*asynq.TaskInfo, error) {
	build, ok := manualTasks[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (known: %v)", ErrUnknownTask, name, ManualTaskNames())
	}
	return c.client.EnqueueContext(ctx, build())
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
