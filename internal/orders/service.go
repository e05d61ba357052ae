// Package orders owns the order aggregate: creation behind the admission
// gate, the status state machine, and the events emitted for both.
package orders

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Aidin1998/foodhub/internal/admission"
	"github.com/Aidin1998/foodhub/internal/catalog"
	"github.com/Aidin1998/foodhub/internal/realtime"
	"github.com/Aidin1998/foodhub/internal/schedule"
	"github.com/Aidin1998/foodhub/internal/settings"
	"github.com/Aidin1998/foodhub/pkg/errors"
	"github.com/Aidin1998/foodhub/pkg/metrics"
	"github.com/Aidin1998/foodhub/pkg/models"
)

const lockStripes = 64

// Publisher receives order events after they are committed.
type Publisher interface {
	PublishOrder(typ realtime.EventType, order *models.Order) realtime.Event
}

// Config holds the order service settings.
type Config struct {
	// Timezone is the store time zone used when the settings do not name one.
	Timezone string `mapstructure:"timezone"`
	// UnresolvedProducts is skip or reject.
	UnresolvedProducts UnresolvedPolicy `mapstructure:"unresolved_products" validate:"omitempty,oneof=skip reject"`
}

// StoreStatus is what the status page shows.
type StoreStatus struct {
	schedule.Verdict
	ContactPhone string `json:"contact_phone"`
}

// Service implements the order operations.
type Service struct {
	db        *gorm.DB
	orders    *Repository
	settings  *settings.Repository
	catalog   *catalog.Repository
	publisher Publisher
	cfg       Config
	logger    *zap.Logger
	tracer    trace.Tracer
	latency   metric.Float64Histogram
	now       func() time.Time

	// Status changes of one order are serialised from the CAS through the
	// publish so that subscribers see them in commit order.
	locks [lockStripes]sync.Mutex
}

// NewService wires the order service.
func NewService(db *gorm.DB, publisher Publisher, cfg Config, logger *zap.Logger) *Service {
	if cfg.UnresolvedProducts == "" {
		cfg.UnresolvedProducts = UnresolvedSkip
	}
	latency, _ := otel.Meter("foodhub/orders").Float64Histogram(
		"foodhub.orders.create.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Time to admit, price and persist an order"),
	)
	return &Service{
		db:        db,
		orders:    NewRepository(db),
		settings:  settings.NewRepository(db),
		catalog:   catalog.NewRepository(db),
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.Named("orders"),
		tracer:    otel.Tracer("foodhub/orders"),
		latency:   latency,
		now:       time.Now,
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) lockFor(id uint64) *sync.Mutex {
	return &s.locks[id%lockStripes]
}

// CreateOrder admits, prices and persists a new order, then publishes
// order.created.
func (s *Service) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*models.Order, error) {
	ctx, span := s.tracer.Start(ctx, "orders.CreateOrder",
		trace.WithAttributes(attribute.String("order.type", string(req.Type))))
	defer span.End()

	start := time.Now()
	order, err := s.createOrder(ctx, req)
	s.latency.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.Bool("accepted", err == nil)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.OrdersRejected.WithLabelValues(rejectReason(err)).Inc()
		return nil, err
	}
	span.SetAttributes(attribute.Int64("order.id", int64(order.ID)))
	metrics.OrdersCreated.WithLabelValues(string(order.Type)).Inc()

	s.logger.Info("Order created",
		zap.Uint64("order_id", order.ID),
		zap.String("type", string(order.Type)),
		zap.String("total", order.TotalAmount.String()),
		zap.Int("items", len(order.Items)))

	lock := s.lockFor(order.ID)
	lock.Lock()
	s.publish(realtime.EventOrderCreated, order)
	lock.Unlock()
	return order, nil
}

func (s *Service) createOrder(ctx context.Context, req *CreateOrderRequest) (*models.Order, error) {
	req.sanitize()
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	now := s.now()
	var order *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		settingsTx := s.settings.WithTx(tx)

		cfg, err := settings.LoadAvailability(ctx, settingsTx, s.cfg.Timezone)
		if err != nil {
			s.logger.Error("Failed to load store availability", zap.Error(err))
			return admission.Unavailable(err)
		}
		if err := admission.Admit(cfg, now); err != nil {
			return err
		}

		pricing, err := settings.LoadPricing(ctx, settingsTx)
		if err != nil {
			return err
		}
		items, err := ResolveItems(ctx, s.catalog.WithTx(tx), req.Items, s.cfg.UnresolvedProducts, s.logger)
		if err != nil {
			return err
		}
		fee, total, err := ComputeTotal(items, req.Type, pricing)
		if err != nil {
			return err
		}

		order = &models.Order{
			Status:        models.OrderStatusNew,
			Type:          req.Type,
			TotalAmount:   total,
			DeliveryPrice: fee,
			CustomerName:  req.CustomerName,
			CustomerPhone: req.CustomerPhone,
			Address:       req.Address,
			LocationLat:   req.LocationLat,
			LocationLon:   req.LocationLon,
			Comment:       req.Comment,
			PaymentType:   req.PaymentType,
			Items:         items,
			CreatedAt:     now.UTC(),
			UpdatedAt:     now.UTC(),
		}
		return s.orders.WithTx(tx).Create(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func validateCreate(req *CreateOrderRequest) error {
	switch req.Type {
	case models.OrderTypeDelivery:
		if req.Address == "" && (req.LocationLat == nil || req.LocationLon == nil) {
			return errors.Invalid.
				Explain("delivery orders need an address or a location").
				WithField("required", "address", "address or location is required for delivery")
		}
	case models.OrderTypePickup:
	default:
		return errors.Invalid.
			Explain("unknown order type %q", req.Type).
			WithField("oneof", "type", "must be DELIVERY or PICKUP")
	}
	if len(req.Items) == 0 {
		return errors.Invalid.
			Explain("order has no items").
			WithField("required", "items", "at least one item is required")
	}
	return nil
}

// GetOrder returns one order.
func (s *Service) GetOrder(ctx context.Context, id uint64) (*models.Order, error) {
	return s.orders.FindByID(ctx, id)
}

// ListOrders returns orders newest first.
func (s *Service) ListOrders(ctx context.Context, f Filter) ([]models.Order, error) {
	return s.orders.List(ctx, f)
}

// History returns the status transitions recorded for an order.
func (s *Service) History(ctx context.Context, id uint64) ([]models.StatusTransition, error) {
	if _, err := s.orders.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.orders.Transitions(ctx, id)
}

// StatusChange is a requested transition. From is the status the caller
// last observed; the change applies only while the order is still in it.
type StatusChange struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Actor string
}

// ChangeStatus moves an order from change.From to change.To and publishes
// order.status_changed before returning. Of two callers that observed the
// same status, only the first to commit succeeds; the other gets
// errors.InvalidTransition.
func (s *Service) ChangeStatus(ctx context.Context, id uint64, change StatusChange) (*models.Order, error) {
	ctx, span := s.tracer.Start(ctx, "orders.ChangeStatus", trace.WithAttributes(
		attribute.Int64("order.id", int64(id)),
		attribute.String("order.status.from", string(change.From)),
		attribute.String("order.status", string(change.To)),
	))
	defer span.End()

	order, err := s.changeStatus(ctx, id, change)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.StatusTransitions.WithLabelValues(string(change.To), "rejected").Inc()
		return nil, err
	}
	metrics.StatusTransitions.WithLabelValues(string(change.To), "applied").Inc()
	return order, nil
}

func (s *Service) changeStatus(ctx context.Context, id uint64, change StatusChange) (*models.Order, error) {
	requested, from := change.To, change.From
	if _, ok := models.ParseOrderStatus(string(requested)); !ok {
		return nil, errors.Invalid.
			Explain("unknown status %q", requested).
			WithField("oneof", "status", "must be a canonical order status")
	}
	if _, ok := models.ParseOrderStatus(string(from)); !ok {
		return nil, errors.Invalid.
			Explain("unknown expected status %q", from).
			WithField("oneof", "from", "must be the order's current canonical status")
	}

	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != from {
		s.logger.Warn("Stale status change",
			zap.Uint64("order_id", id),
			zap.String("expected", string(from)),
			zap.String("actual", string(order.Status)),
			zap.String("requested", string(requested)))
		return nil, errors.InvalidTransition.
			Explain("order %d is %s, not %s", id, order.Status, from).
			WithDetail("from", order.Status).
			WithDetail("expected", from).
			WithDetail("to", requested)
	}
	if err := ValidateTransition(order, requested); err != nil {
		return nil, err
	}

	at := s.now().UTC()
	swapped, err := s.orders.CompareAndSwapStatus(ctx, id, from, requested, change.Actor, at)
	if err != nil {
		return nil, err
	}
	if !swapped {
		current, err := s.orders.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		s.logger.Warn("Lost status race",
			zap.Uint64("order_id", id),
			zap.String("expected", string(from)),
			zap.String("actual", string(current.Status)),
			zap.String("requested", string(requested)))
		return nil, errors.InvalidTransition.
			Explain("order %d changed from %s to %s concurrently", id, from, current.Status).
			WithDetail("from", current.Status).
			WithDetail("expected", from).
			WithDetail("to", requested)
	}

	order.Status = requested
	order.UpdatedAt = at
	s.logger.Info("Order status changed",
		zap.Uint64("order_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(requested)),
		zap.String("actor", change.Actor))

	s.publish(realtime.EventOrderStatusChanged, order)
	return order, nil
}

// StoreStatus resolves the current availability verdict. A configuration
// that cannot be loaded is reported as closed.
func (s *Service) StoreStatus(ctx context.Context) StoreStatus {
	cfg, err := settings.LoadAvailability(ctx, s.settings, s.cfg.Timezone)
	if err != nil {
		s.logger.Error("Failed to load store availability", zap.Error(err))
		return StoreStatus{
			Verdict: schedule.Verdict{
				Reason:  schedule.ReasonMisconfigured,
				Message: "store availability could not be determined",
			},
			ContactPhone: settings.DefaultContactPhone,
		}
	}
	v := schedule.Resolve(cfg, s.now())
	if v.Degraded {
		s.logger.Warn("Store schedule uses default boundaries", zap.String("reason", string(v.Reason)))
	}
	return StoreStatus{Verdict: v, ContactPhone: cfg.ContactPhone}
}

// publish hands a copy of order to the broadcaster. Failures stay inside
// the broadcaster.
func (s *Service) publish(typ realtime.EventType, order *models.Order) {
	if s.publisher == nil {
		return
	}
	snapshot := *order
	snapshot.Items = append([]models.OrderItem(nil), order.Items...)
	ev := s.publisher.PublishOrder(typ, &snapshot)
	s.logger.Debug("Order event published",
		zap.String("event_id", ev.ID),
		zap.Uint64("seq", ev.Seq),
		zap.String("type", string(typ)),
		zap.String("order_id", strconv.FormatUint(order.ID, 10)))
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, errors.StoreClosed):
		return "store_closed"
	case errors.Is(err, errors.Invalid):
		return "validation"
	case errors.Is(err, errors.NotFound):
		return "unknown_product"
	case errors.Is(err, errors.Unavailable):
		return "unavailable"
	default:
		return "internal"
	}
}
