package companies

import (
	"context"
	"strings"

	"github.com/agrotrade/agrotrade/internal/shared"
)

// Service guards access to company details.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns the company of userID. Staff may read any company.
func (s *Service) Get(ctx context.Context, p *shared.Principal, userID int64) (Details, error) {
	if !p.IsStaff() && p.UserID != userID {
		return Details{}, shared.ErrForbidden
	}
	return s.repo.Get(ctx, userID)
}

// Upsert saves the company of userID. Only the owner or an admin may write.
func (s *Service) Upsert(ctx context.Context, p *shared.Principal, userID int64, in Input) (Details, error) {
	if !p.IsAdmin() && p.UserID != userID {
		return Details{}, shared.ErrForbidden
	}
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	in.Country = strings.TrimSpace(in.Country)
	in.Website = strings.TrimSpace(in.Website)
	return s.repo.Upsert(ctx, userID, in)
}
