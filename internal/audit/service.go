// Package audit exposes the append-only audit trail to administrators.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// Store is the read side of audit_logs.
type Store interface {
	Window(ctx context.Context, filters TimelineFilters, offset, limit int) ([]Entry, error)
	All(ctx context.Context, filters TimelineFilters) ([]Entry, error)
}

// Service pages through the audit trail.
type Service struct {
	store Store
}

// NewService builds the audit timeline service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Timeline returns one page of entries. It fetches one extra row to detect a next page.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s.store == nil {
		return Result{}, errors.New("audit: store not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	rows, err := s.store.Window(ctx, normalize(filters), (page-1)*pageSize, pageSize+1)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	if rows == nil {
		rows = []Entry{}
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// Export returns every matching entry flattened for CSV.
func (s *Service) Export(ctx context.Context, filters TimelineFilters) ([]CSVRow, error) {
	if s.store == nil {
		return nil, errors.New("audit: store not configured")
	}
	rows, err := s.store.All(ctx, normalize(filters))
	if err != nil {
		return nil, err
	}
	out := make([]CSVRow, 0, len(rows))
	for _, e := range rows {
		out = append(out, toCSV(e))
	}
	return out, nil
}

func normalize(f TimelineFilters) TimelineFilters {
	f.Entity = strings.TrimSpace(f.Entity)
	f.EntityID = strings.TrimSpace(f.EntityID)
	f.Action = strings.TrimSpace(f.Action)
	return f
}

func toCSV(e Entry) CSVRow {
	row := CSVRow{
		At:         e.At.UTC().Format(time.RFC3339),
		ActorEmail: e.ActorEmail,
		Action:     e.Action,
		Entity:     e.Entity,
		EntityID:   e.EntityID,
	}
	if len(e.Meta) > 0 {
		if raw, err := json.Marshal(e.Meta); err == nil {
			row.Meta = string(raw)
		}
	}
	return row
}
