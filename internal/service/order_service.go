package service

import (
	"context"
	"fmt"
	"time"

	"kasa/internal/coupon"
	"kasa/internal/model"
	"kasa/internal/order"
	"kasa/internal/pricing"
	"kasa/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// orderService implements OrderService.
type orderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	coupons     coupon.Checker
	logger      zerolog.Logger
	now         func() time.Time
}

// NewOrderService creates a new order service. A nil coupon checker
// accepts every coupon code.
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	coupons coupon.Checker,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		coupons:     coupons,
		logger:      logger.With().Str("service", "order").Logger(),
		now:         time.Now,
	}
}

// PlaceOrder validates the draft, reprices the cart against the catalog and
// records the order. When repricing drops, clamps or merges a line, or any
// line differs from the pricing the client sent, the rewritten cart is
// returned without an order ID and nothing is stored.
func (s *orderService) PlaceOrder(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("checkout request is nil")
	}

	draft := req.Draft()
	if invalid := order.Validate(draft); len(invalid) > 0 {
		s.logger.Debug().
			Int("invalid_fields", len(invalid)).
			Str("first", invalid[0].Field).
			Msg("checkout draft invalid")
		return nil, &model.ValidationError{Fields: invalid}
	}

	lines, err := model.ParseCartLines(req.Cart)
	if err != nil {
		s.logger.Debug().Err(err).Msg("checkout cart invalid")
		return nil, err
	}

	if draft.Coupon != "" && s.coupons != nil {
		if err := s.coupons.Check(ctx, draft.Coupon); err != nil {
			s.logger.Warn().
				Str("coupon_code", draft.Coupon).
				Err(err).
				Msg("invalid coupon code")
			return nil, err
		}
	}

	cart, rewritten, err := s.reprice(ctx, lines)
	if err != nil {
		return nil, err
	}
	if !rewritten && len(req.Expected) > 0 && !model.MatchesPricing(cart, req.Expected) {
		s.logger.Debug().Int("lines", len(cart)).Msg("catalog pricing differs from submitted pricing")
		rewritten = true
	}
	total := pricing.CartTotal(cart)

	resp := &model.CheckoutResponse{Cart: cart, Total: total}

	if rewritten || len(cart) == 0 {
		s.logger.Info().
			Int("submitted_lines", len(lines)).
			Int("returned_lines", len(cart)).
			Int64("total", total).
			Msg("cart rewritten, order not placed")
		return resp, nil
	}

	orderID, err := s.store(ctx, draft, cart, total)
	if err != nil {
		return nil, err
	}

	resp.OrderID = orderID.String()
	return resp, nil
}

// reprice builds the authoritative cart for the submitted lines. Repeated
// identifiers are merged into the first occurrence.
func (s *orderService) reprice(ctx context.Context, lines []model.CartLine) (model.Cart, bool, error) {
	merged := make([]model.CartLine, 0, len(lines))
	position := make(map[string]int, len(lines))
	rewritten := false
	for _, l := range lines {
		if i, ok := position[l.ID]; ok {
			merged[i].Quantity += l.Quantity
			rewritten = true
			continue
		}
		position[l.ID] = len(merged)
		merged = append(merged, l)
	}

	urls := make([]string, len(merged))
	for i, l := range merged {
		urls[i] = l.ID
	}

	products, err := s.productRepo.GetByURLs(ctx, urls)
	if err != nil {
		s.logger.Error().Err(err).Int("count", len(urls)).Msg("failed to load cart products")
		return nil, false, fmt.Errorf("failed to load cart products: %w", err)
	}

	cart := make(model.Cart, 0, len(merged))
	for _, l := range merged {
		p, ok := products[l.ID]
		if !ok || p.Quantity <= 0 {
			s.logger.Debug().
				Str("product_url", l.ID).
				Bool("known", ok).
				Msg("dropping unavailable cart line")
			rewritten = true
			continue
		}

		qty := l.Quantity
		if qty > p.Quantity {
			qty = p.Quantity
			rewritten = true
		}
		cart = append(cart, p.LineItem(qty))
	}

	return cart, rewritten, nil
}

func (s *orderService) store(ctx context.Context, draft model.OrderDraft, cart model.Cart, total int64) (id uuid.UUID, err error) {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return uuid.Nil, fmt.Errorf("failed to create order: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	now := s.now().UTC()
	record := &model.Order{
		ID:            uuid.New(),
		PaymentMethod: draft.PaymentMethod,
		Customer:      draft,
		Total:         total,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if draft.Coupon != "" {
		code := draft.Coupon
		record.CouponCode = &code
	}

	if err = s.orderRepo.CreateOrder(ctx, tx, record); err != nil {
		s.logger.Error().Err(err).Str("order_id", record.ID.String()).Msg("failed to create order")
		return uuid.Nil, fmt.Errorf("failed to create order: %w", err)
	}

	items := make([]model.OrderItem, len(cart))
	for i, line := range cart {
		items[i] = model.OrderItem{
			ID:            uuid.New(),
			OrderID:       record.ID,
			ProductURL:    line.ID,
			Quantity:      line.Quantity,
			UnitPrice:     line.Price,
			Reduction:     line.Reduction,
			ReductionType: line.ReductionType,
			LineTotal:     pricing.LineTotal(line),
		}
	}

	if err = s.orderRepo.CreateOrderItems(ctx, tx, items); err != nil {
		s.logger.Error().
			Err(err).
			Str("order_id", record.ID.String()).
			Int("item_count", len(items)).
			Msg("failed to create order items")
		return uuid.Nil, fmt.Errorf("failed to create order items: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", record.ID.String()).Msg("failed to commit transaction")
		return uuid.Nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.logger.Info().
		Str("order_id", record.ID.String()).
		Int("item_count", len(items)).
		Int64("total", total).
		Msg("order created successfully")

	return record.ID, nil
}

// GetByID retrieves a placed order with its items. A missing order
// returns nil without an error.
func (s *orderService) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error) {
	o, items, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, nil, fmt.Errorf("failed to get order: %w", err)
	}
	return o, items, nil
}
