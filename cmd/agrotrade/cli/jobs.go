package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/hibiken/asynq"

	"github.com/agrotrade/agrotrade/jobs"
)

// Trigger enqueues a maintenance task by name.
type Trigger interface {
	Trigger(ctx context.Context, name string) (*asynq.TaskInfo, error)
}

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    Trigger
	inspector jobs.QueueInspector
}

// NewJobsCLI builds the helper on top of a jobs client and queue inspector.
func NewJobsCLI(client Trigger, inspector jobs.QueueInspector) *JobsCLI {
	return &JobsCLI{client: client, inspector: inspector}
}

// JobsOptions holds the parsed arguments of the jobs command.
type JobsOptions struct {
	Action     string
	Name       string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// Run executes `jobs trigger <name>`, `jobs stats` or `jobs list` and returns the exit code.
func (c *JobsCLI) Run(ctx context.Context, opts JobsOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	switch opts.Action {
	case "trigger":
		if opts.Name == "" {
			_, _ = fmt.Fprintln(opts.Stderr, "jobs trigger: task name required")
			return 2
		}
		info, err := c.trigger(ctx, opts.Name)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "jobs trigger: %v\n", err)
			return 1
		}
		if opts.JSONOutput {
			_ = json.NewEncoder(opts.Stdout).Encode(map[string]string{"id": info.ID, "type": info.Type, "queue": info.Queue})
			return 0
		}
		_, _ = fmt.Fprintf(opts.Stdout, "enqueued %s (id=%s queue=%s)\n", info.Type, info.ID, info.Queue)
		return 0
	case "stats":
		stats, err := c.InspectQueues(ctx)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "jobs stats: %v\n", err)
			return 1
		}
		if opts.JSONOutput {
			_ = json.NewEncoder(opts.Stdout).Encode(stats)
			return 0
		}
		tw := tabwriter.NewWriter(opts.Stdout, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "QUEUE\tPENDING\tACTIVE\tSCHEDULED\tRETRY\tARCHIVED\tDONE TODAY\tFAILED TODAY")
		for _, q := range stats {
			_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n", q.Queue, q.Pending, q.Active, q.Scheduled, q.Retry, q.Archived, q.Processed, q.Failed)
		}
		_ = tw.Flush()
		return 0
	case "list":
		for _, name := range jobs.ManualTaskNames() {
			_, _ = fmt.Fprintln(opts.Stdout, name)
		}
		return 0
	default:
		_, _ = fmt.Fprintf(opts.Stderr, "jobs: unknown action %q (trigger|stats|list)\n", opts.Action)
		return 2
	}
}

func (c *JobsCLI) trigger(ctx context.Context, name string) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("client not configured")
	}
	return c.client.Trigger(ctx, name)
}

// InspectQueues reports the depth of every served queue.
func (c *JobsCLI) InspectQueues(_ context.Context) ([]jobs.QueueStats, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("inspector not configured")
	}
	return jobs.Snapshot(c.inspector)
}
