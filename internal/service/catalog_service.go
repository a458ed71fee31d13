package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"ochre-shop/internal/model"
	"ochre-shop/internal/repository"

	"github.com/gosimple/slug"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const maxSlugAttempts = 50

// reservedSlugs are fixed paths under /shop/ that would shadow a product page.
var reservedSlugs = map[string]bool{
	"cart":       true,
	"categories": true,
	"checkout":   true,
	"orders":     true,
}

var hundred = decimal.NewFromInt(100)

// catalogService implements CatalogService.
type catalogService struct {
	catalogRepo repository.CatalogRepository
	logger      zerolog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(catalogRepo repository.CatalogRepository, logger zerolog.Logger) CatalogService {
	return &catalogService{
		catalogRepo: catalogRepo,
		logger:      logger.With().Str("service", "catalog").Logger(),
	}
}

func (s *catalogService) ListCategories(ctx context.Context) ([]model.Category, error) {
	categories, err := s.catalogRepo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	return categories, nil
}

func (s *catalogService) ListProducts(ctx context.Context, categorySlug, tab string) ([]model.Product, error) {
	experiences := tab == "experiences"
	filter := model.ProductFilter{
		CategorySlug: strings.TrimSpace(categorySlug),
		Experiences:  &experiences,
	}

	products, err := s.catalogRepo.ListProducts(ctx, filter)
	if err != nil {
		s.logger.Error().Err(err).
			Str("category", filter.CategorySlug).
			Bool("experiences", experiences).
			Msg("failed to list products")
		return nil, fmt.Errorf("failed to get products: %w", err)
	}

	s.logger.Debug().
		Int("count", len(products)).
		Str("category", filter.CategorySlug).
		Bool("experiences", experiences).
		Msg("retrieved products")

	return products, nil
}

func (s *catalogService) GetProduct(ctx context.Context, productSlug string) (*model.Product, error) {
	if productSlug == "" {
		return nil, model.ErrProductNotFound
	}
	return s.catalogRepo.GetProductBySlug(ctx, productSlug)
}

func (s *catalogService) CreateProduct(ctx context.Context, req *model.CreateProductRequest) (*model.Product, error) {
	if req == nil {
		return nil, model.NewInputError("product request is required")
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := checkTax(req.TaxPercent); err != nil {
		return nil, err
	}
	if req.Price != nil && req.Price.IsNegative() {
		return nil, model.NewInputError("price must not be negative")
	}

	published := true
	if req.Published != nil {
		published = *req.Published
	}

	p := &model.Product{
		Title:        strings.TrimSpace(req.Title),
		CategoryID:   req.CategoryID,
		Description:  req.Description,
		Price:        req.Price,
		TaxPercent:   req.TaxPercent,
		IsExperience: req.IsExperience,
		Published:    published,
	}
	for i := range req.Units {
		u, err := unitFromRequest(&req.Units[i])
		if err != nil {
			return nil, err
		}
		p.Units = append(p.Units, *u)
	}

	if p.Price == nil && !p.HasActiveUnit() {
		return nil, model.ErrPriceRequired
	}

	base := slug.Make(req.Slug)
	explicit := base != ""
	if !explicit {
		base = slug.Make(p.Title)
	}
	if base == "" {
		return nil, model.NewInputError("title must contain letters or digits")
	}
	if explicit && reservedSlugs[base] {
		return nil, model.NewInputError(fmt.Sprintf("slug %q is reserved", base))
	}

	for attempt := 1; attempt <= maxSlugAttempts; attempt++ {
		candidate := base
		if attempt > 1 {
			candidate = base + "-" + strconv.Itoa(attempt)
		}

		if reservedSlugs[candidate] {
			continue
		}

		if !explicit {
			taken, err := s.catalogRepo.SlugExists(ctx, candidate)
			if err != nil {
				return nil, fmt.Errorf("failed to create product: %w", err)
			}
			if taken {
				continue
			}
		}

		p.Slug = candidate
		err := s.catalogRepo.CreateProduct(ctx, p)
		if err == nil {
			s.logger.Info().
				Int64("product_id", p.ID).
				Str("slug", p.Slug).
				Int("units", len(p.Units)).
				Msg("product created")
			return p, nil
		}

		// A staff-chosen slug is never rewritten; a derived one lost a race.
		if errors.Is(err, model.ErrSlugTaken) && !explicit {
			continue
		}
		if !errors.Is(err, model.ErrSlugTaken) {
			s.logger.Error().Err(err).Str("slug", candidate).Msg("failed to create product")
		}
		return nil, err
	}

	return nil, model.ErrSlugTaken
}

func (s *catalogService) SaveUnit(ctx context.Context, productID int64, req *model.SaveProductUnitRequest) (*model.ProductUnit, error) {
	if req == nil {
		return nil, model.NewInputError("unit request is required")
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	u, err := unitFromRequest(req)
	if err != nil {
		return nil, err
	}
	u.ProductID = productID

	if err := s.catalogRepo.SaveUnit(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("product_id", productID).
		Int64("unit_id", u.ID).
		Bool("default", u.IsDefault).
		Msg("product unit saved")

	return u, nil
}

func unitFromRequest(req *model.SaveProductUnitRequest) (*model.ProductUnit, error) {
	if req.Price.IsNegative() {
		return nil, model.NewInputError("unit price must not be negative")
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return &model.ProductUnit{
		ID:        req.ID,
		Label:     strings.TrimSpace(req.Label),
		Price:     req.Price,
		IsActive:  active,
		IsDefault: req.IsDefault,
	}, nil
}

func checkTax(tax decimal.Decimal) error {
	if tax.IsNegative() || tax.GreaterThan(hundred) {
		return model.NewInputError("tax percent must be between 0 and 100")
	}
	return nil
}
