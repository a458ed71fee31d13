package service

import (
	"context"
	"errors"
	"fmt"

	"ochre-shop/internal/model"
	"ochre-shop/internal/pricing"
	"ochre-shop/internal/repository"
	"ochre-shop/internal/session"

	"github.com/rs/zerolog"
)

// cartService implements CartService. Authenticated carts live in Postgres,
// anonymous ones in the session store.
type cartService struct {
	cartRepo    repository.CartRepository
	catalogRepo repository.CatalogRepository
	sessions    session.CartStore
	logger      zerolog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(
	cartRepo repository.CartRepository,
	catalogRepo repository.CatalogRepository,
	sessions session.CartStore,
	logger zerolog.Logger,
) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		catalogRepo: catalogRepo,
		sessions:    sessions,
		logger:      logger.With().Str("service", "cart").Logger(),
	}
}

func (s *cartService) Add(ctx context.Context, v model.Visitor, req *model.AddItemRequest) (int, error) {
	if req == nil || req.ProductID <= 0 {
		return 0, model.NewInputError("product_id is required")
	}
	if req.Quantity <= 0 || req.Quantity > model.MaxLineQuantity {
		return 0, model.ErrInvalidQuantity
	}

	product, unit, err := s.resolve(ctx, req.ProductID, req.ProductUnitID)
	if err != nil {
		return 0, err
	}

	if !v.Authenticated() {
		if err := s.sessions.Add(ctx, v.SessionID, product.ID, req.ProductUnitID, req.Quantity); err != nil {
			return 0, err
		}
		return s.sessions.Count(ctx, v.SessionID)
	}

	userID := *v.UserID
	cart, err := s.cartRepo.GetOrCreate(ctx, nil, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to add to cart: %w", err)
	}

	price := product.PriceFor(unit)
	if err := s.cartRepo.AddLine(ctx, nil, cart.ID, product.ID, req.ProductUnitID, req.Quantity, price); err != nil {
		return 0, err
	}

	s.logger.Debug().
		Int64("user_id", userID).
		Int64("product_id", product.ID).
		Int("quantity", req.Quantity).
		Str("unit_price", price.String()).
		Msg("cart line added")

	return s.cartRepo.Count(ctx, userID)
}

// resolve checks that the product is published and, when given, that the
// unit is an active unit of that product.
func (s *cartService) resolve(ctx context.Context, productID int64, unitID *int64) (*model.Product, *model.ProductUnit, error) {
	product, err := s.catalogRepo.GetProductByID(ctx, productID, false)
	if err != nil {
		return nil, nil, err
	}
	if unitID == nil {
		return product, nil, nil
	}

	unit, err := s.catalogRepo.GetUnit(ctx, productID, *unitID)
	if err != nil {
		return nil, nil, err
	}
	if !unit.IsActive {
		return nil, nil, model.ErrUnitNotFound
	}
	return product, unit, nil
}

func (s *cartService) Remove(ctx context.Context, v model.Visitor, productID int64, unitID *int64) (int, error) {
	if productID <= 0 {
		return 0, model.NewInputError("product_id is required")
	}

	if !v.Authenticated() {
		if err := s.sessions.Remove(ctx, v.SessionID, productID, unitID); err != nil {
			return 0, err
		}
		return s.sessions.Count(ctx, v.SessionID)
	}

	userID := *v.UserID
	cart, err := s.cartRepo.Get(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to remove from cart: %w", err)
	}
	if cart == nil {
		return 0, nil
	}
	if err := s.cartRepo.RemoveLine(ctx, cart.ID, productID, unitID); err != nil {
		return 0, err
	}
	return s.cartRepo.Count(ctx, userID)
}

func (s *cartService) Count(ctx context.Context, v model.Visitor) (int, error) {
	if v.Authenticated() {
		return s.cartRepo.Count(ctx, *v.UserID)
	}
	return s.sessions.Count(ctx, v.SessionID)
}

func (s *cartService) View(ctx context.Context, v model.Visitor) (*model.CartView, error) {
	var lines []model.CartLine
	var err error

	if v.Authenticated() {
		lines, err = s.userLines(ctx, *v.UserID)
	} else {
		lines, err = s.sessionLines(ctx, v.SessionID)
	}
	if err != nil {
		return nil, err
	}

	return buildView(lines), nil
}

func (s *cartService) userLines(ctx context.Context, userID int64) ([]model.CartLine, error) {
	cart, err := s.cartRepo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if cart == nil {
		return []model.CartLine{}, nil
	}

	items, err := s.cartRepo.Lines(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	lines := make([]model.CartLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, model.CartLine{
			ProductID:     it.ProductID,
			ProductSlug:   it.ProductSlug,
			Title:         it.Title,
			ProductUnitID: it.ProductUnitID,
			UnitLabel:     it.UnitLabel,
			Quantity:      it.Quantity,
			UnitPrice:     it.UnitPrice,
			TaxPercent:    it.TaxPercent,
			LineTotal:     pricing.LineTotal(it.UnitPrice, it.Quantity),
		})
	}
	return lines, nil
}

// sessionLines prices the anonymous cart against the live catalogue. Entries
// whose product is gone or unpublished, or whose unit is inactive, are
// dropped silently.
func (s *cartService) sessionLines(ctx context.Context, sid string) ([]model.CartLine, error) {
	entries, err := s.sessions.Entries(ctx, sid)
	if err != nil {
		return nil, err
	}

	resolved, err := s.resolveEntries(ctx, entries)
	if err != nil {
		return nil, err
	}

	lines := make([]model.CartLine, 0, len(resolved))
	for _, r := range resolved {
		price := r.product.PriceFor(r.unit)
		line := model.CartLine{
			ProductID:     r.product.ID,
			ProductSlug:   r.product.Slug,
			Title:         r.product.Title,
			ProductUnitID: r.entry.UnitID,
			Quantity:      r.entry.Quantity,
			UnitPrice:     price,
			TaxPercent:    r.product.TaxPercent,
			LineTotal:     pricing.LineTotal(price, r.entry.Quantity),
		}
		if r.unit != nil {
			line.UnitLabel = r.unit.Label
		}
		lines = append(lines, line)
	}
	return lines, nil
}

type resolvedEntry struct {
	entry   session.Entry
	product *model.Product
	unit    *model.ProductUnit
}

// resolveEntries loads the products of all entries in one query and keeps
// the entries that can still be sold.
func (s *cartService) resolveEntries(ctx context.Context, entries []session.Entry) ([]resolvedEntry, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(entries))
	seen := make(map[int64]bool, len(entries))
	for _, e := range entries {
		if !seen[e.ProductID] {
			seen[e.ProductID] = true
			ids = append(ids, e.ProductID)
		}
	}

	products, err := s.catalogRepo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart products: %w", err)
	}
	byID := make(map[int64]*model.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	out := make([]resolvedEntry, 0, len(entries))
	for _, e := range entries {
		p, ok := byID[e.ProductID]
		if !ok {
			s.logger.Debug().Int64("product_id", e.ProductID).Msg("dropping session line for unavailable product")
			continue
		}

		var unit *model.ProductUnit
		if e.UnitID != nil {
			unit = activeUnit(p, *e.UnitID)
			if unit == nil {
				s.logger.Debug().
					Int64("product_id", e.ProductID).
					Int64("unit_id", *e.UnitID).
					Msg("dropping session line for unavailable unit")
				continue
			}
		}
		out = append(out, resolvedEntry{entry: e, product: p, unit: unit})
	}
	return out, nil
}

func activeUnit(p *model.Product, unitID int64) *model.ProductUnit {
	for i := range p.Units {
		if p.Units[i].ID == unitID && p.Units[i].IsActive {
			return &p.Units[i]
		}
	}
	return nil
}

func buildView(lines []model.CartLine) *model.CartView {
	in := make([]pricing.Line, len(lines))
	for i, l := range lines {
		in[i] = pricing.Line{UnitPrice: l.UnitPrice, Quantity: l.Quantity, TaxPercent: l.TaxPercent}
	}
	totals := pricing.Compute(in)

	return &model.CartView{
		Items:    lines,
		Count:    pricing.Count(in),
		Subtotal: totals.Subtotal,
		Tax:      totals.Tax,
		Total:    totals.Total,
	}
}

func (s *cartService) MergeSessionCart(ctx context.Context, sid string, userID int64) (merged int, err error) {
	if sid == "" {
		return 0, nil
	}

	entries, err := s.sessions.Take(ctx, sid)
	if err != nil {
		return 0, fmt.Errorf("failed to read session cart: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	// The session cart is already cleared; put it back if nothing was saved.
	defer func() {
		if err == nil {
			return
		}
		if rErr := s.sessions.Restore(context.WithoutCancel(ctx), sid, entries); rErr != nil {
			s.logger.Error().Err(rErr).
				Int64("user_id", userID).
				Int("entries", len(entries)).
				Msg("failed to restore session cart after merge failure")
		}
	}()

	resolved, err := s.resolveEntries(ctx, entries)
	if err != nil {
		return 0, err
	}
	if len(resolved) == 0 {
		return 0, nil
	}

	tx, err := s.cartRepo.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to merge cart: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	cart, err := s.cartRepo.GetOrCreate(ctx, tx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to merge cart: %w", err)
	}

	merged = 0
	for _, r := range resolved {
		price := r.product.PriceFor(r.unit)
		qty := min(r.entry.Quantity, model.MaxLineQuantity)
		err = s.cartRepo.AddLine(ctx, tx, cart.ID, r.product.ID, r.entry.UnitID, qty, price)
		if errors.Is(err, model.ErrInvalidQuantity) {
			// The stored line is already near the cap; keep it as is.
			s.logger.Warn().
				Int64("user_id", userID).
				Int64("product_id", r.product.ID).
				Int("quantity", qty).
				Msg("session line exceeds cart line limit, not merged")
			err = nil
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("failed to merge cart: %w", err)
		}
		merged++
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to merge cart: %w", err)
	}

	s.logger.Info().
		Int64("user_id", userID).
		Int("merged", merged).
		Int("dropped", len(entries)-merged).
		Msg("session cart merged")

	return merged, nil
}
