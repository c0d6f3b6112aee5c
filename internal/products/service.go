package products

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"

	"github.com/agrotrade/agrotrade/internal/platform/storage"
	"github.com/agrotrade/agrotrade/internal/shared"
)

const defaultCurrency = "USD"

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, filter ListFilter) ([]Product, int, error)
	Get(ctx context.Context, id int64) (Product, error)
	Create(ctx context.Context, p Product) (Product, error)
	Delete(ctx context.Context, id int64) error
	PriceHistory(ctx context.Context, id int64) ([]PricePoint, error)
	Grades(ctx context.Context, category string) ([]string, error)
	AppendImage(ctx context.Context, id int64, key string) error
	RemoveImage(ctx context.Context, id int64, key string) error
}

// ImageStore uploads and removes product photos.
type ImageStore interface {
	Upload(ctx context.Context, prefix string, r io.Reader) (storage.Object, error)
	Remove(ctx context.Context, key string) error
	URL(key string) string
}

// Invalidator drops cached aggregates after a mutation.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Service coordinates catalogue operations.
type Service struct {
	repo   RepositoryPort
	images ImageStore
	node   *snowflake.Node
	cache  Invalidator
	audit  shared.AuditRecorder
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, images ImageStore, node *snowflake.Node, cache Invalidator, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, images: images, node: node, cache: cache, audit: audit, logger: logger}
}

// List returns a catalogue page. Non-admin callers only see active listings unless they own them.
func (s *Service) List(ctx context.Context, p *shared.Principal, filter ListFilter) ([]Product, shared.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	if filter.Dir == "" && (filter.Sort == "" || filter.Sort == "created_at") {
		filter.Dir = "desc"
	}
	if filter.Category != "" && !Category(strings.ToUpper(filter.Category)).Valid() {
		return nil, shared.Pagination{}, fmt.Errorf("%w: unknown category %q", shared.ErrValidation, filter.Category)
	}
	if !p.IsAdmin() {
		viewer := int64(0)
		if p != nil {
			viewer = p.UserID
		}
		filter.ViewerID = &viewer
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	for i := range rows {
		s.decorate(&rows[i])
	}
	return rows, shared.NewPagination(filter.Page, filter.Limit, total), nil
}

// Export returns every listing matching filter, unpaginated, for reports.
func (s *Service) Export(ctx context.Context, filter ListFilter) ([]Product, error) {
	filter.Page, filter.Limit = 1, 0
	rows, _, err := s.repo.List(ctx, filter)
	for i := range rows {
		s.decorate(&rows[i])
	}
	return rows, err
}

// Get returns a product. Inactive listings are hidden from everyone but their seller and admins.
func (s *Service) Get(ctx context.Context, p *shared.Principal, id int64) (Product, error) {
	prod, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if !prod.IsActive && !p.IsAdmin() && (p == nil || p.UserID != prod.SellerID) {
		return Product{}, shared.ErrNotFound
	}
	s.decorate(&prod)
	return prod, nil
}

// Create lists a new product for the calling seller, or for SellerID when an admin calls.
func (s *Service) Create(ctx context.Context, p *shared.Principal, in CreateInput) (Product, error) {
	sellerID, err := s.resolveSeller(p, in.SellerID)
	if err != nil {
		return Product{}, err
	}
	category := Category(strings.ToUpper(in.Category))
	if !category.Valid() {
		return Product{}, fmt.Errorf("%w: unknown category %q", shared.ErrValidation, in.Category)
	}
	prod := Product{
		SellerID:    sellerID,
		Name:        strings.TrimSpace(in.Name),
		Category:    category,
		Grade:       normalizeGrade(in.Grade),
		Description: strings.TrimSpace(in.Description),
		PricePerKg:  round2(in.PricePerKg),
		Currency:    currencyOrDefault(in.Currency),
		StockKg:     shared.RoundKg(in.StockKg),
		MinOrderKg:  shared.RoundKg(in.MinOrderKg),
		Location:    strings.TrimSpace(in.Location),
		Origin:      strings.TrimSpace(in.Origin),
		IsActive:    in.IsActive == nil || *in.IsActive,
	}
	prod.SKU = s.newSKU(prod.Category, prod.Grade)
	created, err := s.repo.Create(ctx, prod)
	if err != nil {
		return Product{}, err
	}
	s.invalidate(ctx)
	s.decorate(&created)
	return created, nil
}

// Update edits a listing. A price change is recorded in the price history atomically.
func (s *Service) Update(ctx context.Context, p *shared.Principal, id int64, in UpdateInput) (Product, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := canManage(p, current); err != nil {
			return err
		}
		next := applyUpdate(current, in)
		if !next.Category.Valid() {
			return fmt.Errorf("%w: unknown category %q", shared.ErrValidation, next.Category)
		}
		if err := tx.Update(ctx, next); err != nil {
			return err
		}
		if next.PricePerKg != current.PricePerKg {
			return tx.InsertPriceHistory(ctx, PricePoint{
				ProductID: id,
				OldPrice:  current.PricePerKg,
				NewPrice:  next.PricePerKg,
				ChangedBy: p.UserID,
			})
		}
		return nil
	})
	if err != nil {
		return Product{}, err
	}
	s.invalidate(ctx)
	updated, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	s.decorate(&updated)
	return updated, nil
}

// Delete removes a listing and its stored images.
func (s *Service) Delete(ctx context.Context, p *shared.Principal, id int64) error {
	prod, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := canManage(p, prod); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	for _, key := range prod.ImageKeys {
		if err := s.images.Remove(ctx, key); err != nil {
			s.logger.Warn("remove product image", slog.String("key", key), slog.Any("error", err))
		}
	}
	s.invalidate(ctx)
	return s.audit.Record(ctx, shared.AuditLog{
		ActorID:  p.UserID,
		Action:   "product.delete",
		Entity:   "product",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"sku": prod.SKU},
	})
}

// PriceHistory returns the price changes of a visible product.
func (s *Service) PriceHistory(ctx context.Context, p *shared.Principal, id int64) ([]PricePoint, error) {
	if _, err := s.Get(ctx, p, id); err != nil {
		return nil, err
	}
	return s.repo.PriceHistory(ctx, id)
}

// Grades lists distinct grades of active listings.
func (s *Service) Grades(ctx context.Context, category string) ([]string, error) {
	return s.repo.Grades(ctx, category)
}

// AddImage uploads a photo and attaches it to the listing.
func (s *Service) AddImage(ctx context.Context, p *shared.Principal, id int64, r io.Reader) (Image, error) {
	prod, err := s.repo.Get(ctx, id)
	if err != nil {
		return Image{}, err
	}
	if err := canManage(p, prod); err != nil {
		return Image{}, err
	}
	obj, err := s.images.Upload(ctx, "products/"+strconv.FormatInt(id, 10), r)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) || errors.Is(err, storage.ErrUnsupportedType) {
			return Image{}, fmt.Errorf("%w: %v", shared.ErrValidation, err)
		}
		return Image{}, err
	}
	if err := s.repo.AppendImage(ctx, id, obj.Key); err != nil {
		_ = s.images.Remove(ctx, obj.Key)
		return Image{}, err
	}
	return Image{Key: obj.Key, URL: obj.URL}, nil
}

// RemoveImage detaches a photo from the listing and deletes it from storage.
func (s *Service) RemoveImage(ctx context.Context, p *shared.Principal, id int64, key string) error {
	prod, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := canManage(p, prod); err != nil {
		return err
	}
	if err := s.repo.RemoveImage(ctx, id, key); err != nil {
		return err
	}
	return s.images.Remove(ctx, key)
}

func (s *Service) resolveSeller(p *shared.Principal, requested *int64) (int64, error) {
	switch {
	case p == nil:
		return 0, shared.ErrUnauthorized
	case p.Role == shared.RoleSeller:
		return p.UserID, nil
	case p.IsAdmin():
		if requested == nil || *requested <= 0 {
			return 0, fmt.Errorf("%w: seller_id is required", shared.ErrValidation)
		}
		return *requested, nil
	default:
		return 0, shared.ErrForbidden
	}
}

func (s *Service) newSKU(category Category, grade string) string {
	id := s.node.Generate()
	return fmt.Sprintf("%s-%s-%s", category, strings.ReplaceAll(grade, " ", ""), id.String())
}

func (s *Service) decorate(p *Product) {
	p.Images = make([]Image, 0, len(p.ImageKeys))
	for _, key := range p.ImageKeys {
		p.Images = append(p.Images, Image{Key: key, URL: s.images.URL(key)})
	}
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("bump dashboard cache", slog.Any("error", err))
	}
}

func canManage(p *shared.Principal, prod Product) error {
	if p == nil {
		return shared.ErrUnauthorized
	}
	if p.IsAdmin() || (p.Role == shared.RoleSeller && p.UserID == prod.SellerID) {
		return nil
	}
	return shared.ErrForbidden
}

func applyUpdate(p Product, in UpdateInput) Product {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Category != nil {
		p.Category = Category(strings.ToUpper(*in.Category))
	}
	if in.Grade != nil {
		p.Grade = normalizeGrade(*in.Grade)
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.PricePerKg != nil {
		p.PricePerKg = round2(*in.PricePerKg)
	}
	if in.Currency != nil {
		p.Currency = currencyOrDefault(*in.Currency)
	}
	if in.StockKg != nil {
		p.StockKg = shared.RoundKg(*in.StockKg)
	}
	if in.MinOrderKg != nil {
		p.MinOrderKg = shared.RoundKg(*in.MinOrderKg)
	}
	if in.Location != nil {
		p.Location = strings.TrimSpace(*in.Location)
	}
	if in.Origin != nil {
		p.Origin = strings.TrimSpace(*in.Origin)
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	return p
}

func normalizeGrade(g string) string {
	return strings.ToUpper(strings.TrimSpace(g))
}

func currencyOrDefault(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return defaultCurrency
	}
	return c
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
