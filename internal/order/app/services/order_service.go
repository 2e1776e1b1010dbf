package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mon-resto/internal/metrics"
	"mon-resto/internal/mylogger"
	"mon-resto/internal/order/app/core"
	"mon-resto/internal/order/domain/dto"
	"mon-resto/internal/order/domain/models"
	"mon-resto/internal/order/lifecycle"
)

type OrderService struct {
	ctx       context.Context
	orderRepo core.IOrderRepo
	broker    core.IRabbitMQ
	cache     core.ICache
	reviews   core.IReviews
	mylog     mylogger.Logger
}

func NewOrderService(
	ctx context.Context,
	orderRepo core.IOrderRepo,
	broker core.IRabbitMQ,
	cache core.ICache,
	reviews core.IReviews,
	mylog mylogger.Logger,
) *OrderService {
	return &OrderService{
		ctx:       ctx,
		orderRepo: orderRepo,
		broker:    broker,
		cache:     cache,
		reviews:   reviews,
		mylog:     mylog,
	}
}

// Checkout is the sole entry point that creates orders. Validation errors
// surface synchronously and nothing is persisted; the initial pending
// event is published only after the order row is durable.
func (os *OrderService) Checkout(ctx context.Context, req dto.CheckoutRequest) (models.Order, error) {
	mylog := os.mylog.Action("checkout")

	order, err := os.validateCheckout(req)
	if err != nil {
		mylog.Warn("Rejected checkout request", "reason", err.Error())
		return models.Order{}, err
	}

	order.Total, err = models.ComputeTotal(order.LineItems)
	if err != nil {
		mylog.Warn("Rejected checkout request", "reason", err.Error())
		return models.Order{}, err
	}

	newOrder, err := os.orderRepo.Create(ctx, order)
	if err != nil {
		mylog.Error("Failed to save order record in db", err)
		return models.Order{}, fmt.Errorf("cannot save order in db: %w", err)
	}
	metrics.OrdersCreated.Inc()

	os.publish(lifecycle.Event(newOrder, newOrder.Status, newOrder.StatusSeq, newOrder.CreatedAt))

	mylog.Info("Order created successfully", "order_id", newOrder.ID, "total", newOrder.Total)
	return newOrder, nil
}

// Transition runs one staff/admin command through the lifecycle gate and
// publishes the resulting event. Illegal attempts reach the caller as
// models.ErrInvalidTransition with state untouched.
func (os *OrderService) Transition(ctx context.Context, orderID string, cmd lifecycle.Command, changedBy string) (models.StatusEvent, error) {
	mylog := os.mylog.Action("transition").With("order_id", orderID, "command", string(cmd))

	event, err := os.orderRepo.Transition(ctx, orderID, cmd, changedBy)
	if err != nil {
		if errors.Is(err, models.ErrInvalidTransition) {
			metrics.InvalidTransitions.Inc()
			mylog.Warn("Rejected illegal transition", "reason", err.Error())
			return models.StatusEvent{}, err
		}
		mylog.Error("Failed to apply transition", err)
		return models.StatusEvent{}, err
	}
	metrics.Transitions.WithLabelValues(string(event.NewStatus)).Inc()

	// The cached status is stale the moment the transition commits.
	if err := os.cache.Delete(ctx, core.StatusCacheKeyPrefix+orderID); err != nil {
		mylog.Warn("Failed to invalidate status cache", "error", err.Error())
	}

	os.publish(event)

	mylog.Info("Transition applied", "new_status", string(event.NewStatus), "sequence", event.Sequence)
	return event, nil
}

// publish is best effort: a failed push is logged and dropped, the next
// pull-mode request picks up current state.
func (os *OrderService) publish(event models.StatusEvent) {
	ctx, cancel := context.WithTimeout(os.ctx, 5*time.Second)
	defer cancel()

	if err := os.broker.PushEvent(ctx, event); err != nil {
		os.mylog.Action("publish_event").Error("Failed to publish status event", err, "order_id", event.OrderID)
		return
	}
	metrics.EventsPublished.Inc()
}

// GetStatus serves pull-mode polling through the redis read-through cache.
func (os *OrderService) GetStatus(ctx context.Context, orderID string) (dto.StatusResponse, error) {
	mylog := os.mylog.Action("get_status")
	key := core.StatusCacheKeyPrefix + orderID

	if cached, err := os.cache.Get(ctx, key); err == nil {
		var resp dto.StatusResponse
		if err := json.Unmarshal([]byte(cached), &resp); err == nil {
			return resp, nil
		}
		// Unreadable cache entries are treated as misses.
		_ = os.cache.Delete(ctx, key)
	}

	snap, err := os.orderRepo.GetStatus(ctx, orderID)
	if err != nil {
		if errors.Is(err, core.ErrOrderNotFound) {
			return dto.StatusResponse{}, err
		}
		mylog.Error("Failed to get status from db", err)
		return dto.StatusResponse{}, fmt.Errorf("cannot get status: %w", err)
	}

	resp := dto.StatusResponse{
		OrderID:   orderID,
		Status:    string(snap.Status),
		Sequence:  snap.Sequence,
		UpdatedAt: snap.UpdatedAt,
	}

	// Polled state carries the same metadata a pushed event would.
	switch snap.Status {
	case models.StatusPreparing:
		estimate := lifecycle.EstimatedCompletion(snap.UpdatedAt, snap.ServiceType)
		resp.EstimatedCompletion = &estimate
	case models.StatusReady:
		resp.Priority = true
	}

	if body, err := json.Marshal(resp); err == nil {
		if err := os.cache.Set(ctx, key, string(body)); err != nil {
			mylog.Debug("Failed to fill status cache", "error", err.Error())
		}
	}
	return resp, nil
}

func (os *OrderService) GetOrder(ctx context.Context, orderID string) (models.Order, error) {
	return os.orderRepo.Get(ctx, orderID)
}

func (os *OrderService) GetHistory(ctx context.Context, orderID string) ([]core.StatusLogEntry, error) {
	return os.orderRepo.GetHistory(ctx, orderID)
}

func (os *OrderService) ListActive(ctx context.Context) ([]models.Order, error) {
	return os.orderRepo.ListActive(ctx)
}

// SubmitRating is the deferred rating-prompt trigger point. The order must
// be delivered; actual storage is delegated to the review service.
func (os *OrderService) SubmitRating(ctx context.Context, orderID string, req dto.RatingRequest) error {
	mylog := os.mylog.Action("submit_rating").With("order_id", orderID)

	if req.Score < core.MinRatingScore || req.Score > core.MaxRatingScore {
		return fmt.Errorf("%w: score must be in [%d, %d]", models.ErrValidation, core.MinRatingScore, core.MaxRatingScore)
	}

	snap, err := os.orderRepo.GetStatus(ctx, orderID)
	if err != nil {
		return err
	}
	if snap.Status != models.StatusDelivered {
		return core.ErrRatingNotAllowed
	}

	if err := os.reviews.Submit(ctx, orderID, req.Score, req.Comment); err != nil {
		mylog.Error("Failed to forward rating to review service", err)
		return err
	}
	mylog.Info("Rating forwarded", "score", req.Score)
	return nil
}

func (os *OrderService) validateCheckout(req dto.CheckoutRequest) (models.Order, error) {
	serviceType, err := models.ParseServiceType(req.ServiceType)
	if err != nil {
		return models.Order{}, err
	}

	paymentMethod, err := models.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return models.Order{}, err
	}

	switch serviceType {
	case models.ServiceDineIn:
		if req.TableReference == "" {
			return models.Order{}, fmt.Errorf("%w: table reference: %w", models.ErrValidation, core.ErrFieldIsEmpty)
		}
		if len(req.TableReference) > core.MaxTableReferenceLen {
			return models.Order{}, fmt.Errorf("%w: table reference longer than %d", models.ErrValidation, core.MaxTableReferenceLen)
		}
	case models.ServiceTakeaway:
		req.TableReference = ""
	}

	if len(req.Items) < core.MinItems || len(req.Items) > core.MaxItems {
		return models.Order{}, fmt.Errorf("%w: amount of items: %d, must be in range [%d, %d]", models.ErrValidation, len(req.Items), core.MinItems, core.MaxItems)
	}

	items := make([]models.LineItem, 0, len(req.Items))
	for i, item := range req.Items {
		if item.MenuItemID == "" {
			return models.Order{}, fmt.Errorf("%w: item %d: menu item id: %w", models.ErrValidation, i+1, core.ErrFieldIsEmpty)
		}
		if item.Quantity < core.MinItemQuantity || item.Quantity > core.MaxItemQuantity {
			return models.Order{}, fmt.Errorf("%w: item %d: quantity: %d, must be in range [%d, %d]", models.ErrValidation, i+1, item.Quantity, core.MinItemQuantity, core.MaxItemQuantity)
		}
		if len(item.Notes) > core.MaxNotesLen {
			return models.Order{}, fmt.Errorf("%w: item %d: notes longer than %d", models.ErrValidation, i+1, core.MaxNotesLen)
		}
		items = append(items, models.LineItem{
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			Customization: models.Customization{
				Cooking: item.Cooking,
				Sides:   item.Sides,
				Notes:   item.Notes,
			},
		})
	}

	return models.Order{
		TableReference: req.TableReference,
		ServiceType:    serviceType,
		PaymentMethod:  paymentMethod,
		CustomerRef:    req.CustomerRef,
		LineItems:      items,
	}, nil
}
