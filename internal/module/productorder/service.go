package productorder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sportsclub/server/internal/module/catalog"
	"github.com/sportsclub/server/internal/module/payment"
	"github.com/sportsclub/server/internal/utils/pagination"
)

// ProductCatalog looks up shop products.
type ProductCatalog interface {
	GetProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalog.Product, error)
}

// PlaceInput holds the fields of a new order.
type PlaceInput struct {
	// CheckoutRef deduplicates retried checkouts. A fresh reference is
	// generated when empty.
	CheckoutRef     string
	CustomerName    string
	Email           string
	Items           []ItemInput
	NeedsDelivery   bool
	DeliveryFee     decimal.Decimal
	ShippingAddress string
	PaymentOption   PaymentOption
}

// ItemInput selects a product and variant.
type ItemInput struct {
	ProductID uuid.UUID
	Quantity  int
	Size      string
	Color     string
}

// Service implements product order operations.
type Service struct {
	repo     Repository
	products ProductCatalog
	engine   *payment.Engine[*Order]
	machine  *StateMachine
	logger   *zap.Logger
}

// NewService creates a new product order service. opts configure the payment engine.
func NewService(repo Repository, products ProductCatalog, gateway payment.Gateway, logger *zap.Logger, opts ...payment.Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = append([]payment.Option{payment.WithLogger(logger)}, opts...)
	return &Service{
		repo:     repo,
		products: products,
		engine:   payment.NewEngine[*Order](purchaseDomain{}, repo, gateway, opts...),
		machine:  NewStateMachine(),
		logger:   logger,
	}
}

// Payments returns the payment lifecycle of product orders.
func (s *Service) Payments() payment.Operations {
	return s.engine
}

// Place validates the cart against the catalog and stores the order with
// prices snapshotted from the catalog.
func (s *Service) Place(ctx context.Context, owner uuid.UUID, in PlaceInput) (*Order, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	if in.DeliveryFee.IsNegative() {
		return nil, ErrInvalidDeliveryFee
	}
	address := strings.TrimSpace(in.ShippingAddress)
	if in.NeedsDelivery && address == "" {
		return nil, ErrAddressRequired
	}

	ids := make([]uuid.UUID, 0, len(in.Items))
	for _, item := range in.Items {
		if item.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
		ids = append(ids, item.ProductID)
	}
	products, err := s.products.GetProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(in.Items))
	wanted := make(map[uuid.UUID]int, len(in.Items))
	for _, item := range in.Items {
		product, ok := products[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: product %s", payment.ErrTargetNotFound, item.ProductID)
		}
		wanted[item.ProductID] += item.Quantity
		if !product.InStock(wanted[item.ProductID]) {
			return nil, fmt.Errorf("%w: %s", ErrOutOfStock, product.Name)
		}
		items = append(items, Item{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  item.Quantity,
			Size:      strings.TrimSpace(item.Size),
			Color:     strings.TrimSpace(item.Color),
		})
	}

	o := &Order{
		Record: payment.Record{
			ID:           uuid.New(),
			OwnerID:      owner,
			TargetRef:    strings.TrimSpace(in.CheckoutRef),
			ContactEmail: strings.TrimSpace(in.Email),
		},
		CustomerName:  strings.TrimSpace(in.CustomerName),
		Items:         items,
		NeedsDelivery: in.NeedsDelivery,
		OrderStatus:   OrderStatusProcessing,
		PaymentOption: in.PaymentOption,
	}
	if o.TargetRef == "" {
		o.TargetRef = o.ID.String()
	}
	if o.PaymentOption == "" {
		o.PaymentOption = PaymentOptionPayNow
	}
	if in.NeedsDelivery {
		o.DeliveryFee = in.DeliveryFee
		o.ShippingAddress = address
	}
	o.PriceDue = o.Total()

	if err := s.engine.Create(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Get returns an order by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := s.repo.Get(ctx, id)
	if errors.Is(err, payment.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	return o, err
}

// List returns the owner's orders.
func (s *Service) List(ctx context.Context, owner uuid.UUID, page *pagination.Pagination) ([]*Order, int64, error) {
	return s.repo.ListByOwner(ctx, owner, page)
}

// UpdateOrderStatus moves an order along its fulfilment flow.
func (s *Service) UpdateOrderStatus(ctx context.Context, id uuid.UUID, to OrderStatus) (*Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	from := o.OrderStatus
	if err := s.machine.Transition(o, to); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateColumns(ctx, o, "order_status"); err != nil {
		return nil, err
	}
	s.logger.Info("order status updated",
		zap.String("id", o.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return o, nil
}
