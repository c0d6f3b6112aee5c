package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	jobmetrics "github.com/agrotrade/agrotrade/internal/jobs"
	"github.com/agrotrade/agrotrade/internal/queries"
	"github.com/agrotrade/agrotrade/internal/shared"
	"github.com/agrotrade/agrotrade/internal/users"
)

// QueryLookup loads a query without access checks.
type QueryLookup interface {
	Get(ctx context.Context, id int64) (queries.Query, error)
}

// UserLookup loads a user without access checks.
type UserLookup interface {
	Lookup(ctx context.Context, id int64) (users.User, error)
}

// QueryAssignedJob e-mails the employee a query was assigned to.
type QueryAssignedJob struct {
	Queries QueryLookup
	Users   UserLookup
	Mailer  Mailer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle processes TaskQueryAssigned tasks.
func (j *QueryAssignedJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Queries == nil || j.Users == nil || j.Mailer == nil {
		return errors.New("query assigned: dependencies not configured")
	}
	var payload QueryAssignedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w", asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(TaskQueryAssigned)
	q, err := j.Queries.Get(ctx, payload.QueryID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			logger(j.Logger).Info("assigned query vanished", slog.Int64("query_id", payload.QueryID))
			return tracker.End(nil)
		}
		return tracker.End(err)
	}
	// A later reassignment supersedes this notification.
	if q.AssignedTo == nil || *q.AssignedTo != payload.EmployeeID {
		return tracker.End(nil)
	}
	employee, err := j.Users.Lookup(ctx, payload.EmployeeID)
	if err != nil {
		return tracker.End(err)
	}
	if !employee.IsActive || employee.Email == "" {
		return tracker.End(nil)
	}

	msg := SendEmailPayload{
		To:      employee.Email,
		Subject: fmt.Sprintf("%s query #%d assigned to you", typeLabel(q.Type), q.ID),
		Body:    assignmentBody(employee, q),
	}
	if err := j.Mailer.Send(ctx, msg); err != nil {
		logger(j.Logger).Warn("assignment mail failed", slog.Int64("query_id", q.ID), slog.Any("error", err))
		return tracker.End(err)
	}
	return tracker.End(nil)
}

func assignmentBody(employee users.User, q queries.Query) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", employee.FullName)
	fmt.Fprintf(&b, "Query #%d from %s (%s) is now assigned to you.\n\n", q.ID, q.UserName, q.UserEmail)
	fmt.Fprintf(&b, "Type: %s\n", q.Type)
	fmt.Fprintf(&b, "Product: %s\n", q.ProductName)
	if q.Grade != "" {
		fmt.Fprintf(&b, "Grade: %s\n", q.Grade)
	}
	fmt.Fprintf(&b, "Quantity: %.2f kg\n", q.QuantityKg)
	if q.TargetPrice != nil {
		fmt.Fprintf(&b, "Target price: %.2f\n", *q.TargetPrice)
	}
	if q.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", q.Location)
	}
	if q.Message != "" {
		fmt.Fprintf(&b, "\n%s\n", q.Message)
	}
	return b.String()
}

func typeLabel(t queries.Type) string {
	return cases.Title(language.English).String(strings.ToLower(string(t)))
}
