package handle

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"mon-resto/internal/mylogger"
	"mon-resto/internal/order/app/core"
	"mon-resto/internal/order/app/services"
	"mon-resto/internal/order/domain/dto"
	"mon-resto/internal/order/domain/models"
	"mon-resto/internal/order/lifecycle"

	"github.com/go-chi/chi/v5"
)

type OrderHandler struct {
	orderService *services.OrderService
	mylog        mylogger.Logger
}

func NewOrderHandler(orderService *services.OrderService, mylog mylogger.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		mylog:        mylog,
	}
}

func (oh *OrderHandler) Checkout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.CheckoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, http.StatusBadRequest, errors.New("malformed request body"))
			return
		}

		order, err := oh.orderService.Checkout(r.Context(), req)
		if err != nil {
			if errors.Is(err, models.ErrValidation) {
				jsonError(w, http.StatusBadRequest, err)
				return
			}
			jsonError(w, http.StatusInternalServerError, errors.New("failed to create order"))
			return
		}

		jsonWrite(w, http.StatusCreated, dto.CheckoutResponse{
			OrderID:      order.ID,
			Status:       string(order.Status),
			Total:        order.Total,
			EarnedPoints: models.LoyaltyPoints(order.Total),
			CreatedAt:    order.CreatedAt,
		})
	}
}

// Transition handles the kitchen/staff action surface: confirm, start,
// done, serve, cancel.
func (oh *OrderHandler) Transition() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := chi.URLParam(r, "id")

		cmd, err := lifecycle.ParseCommand(chi.URLParam(r, "command"))
		if err != nil {
			jsonError(w, http.StatusBadRequest, err)
			return
		}

		changedBy := r.Header.Get("X-Actor")
		if changedBy == "" {
			changedBy = "staff"
		}

		event, err := oh.orderService.Transition(r.Context(), orderID, cmd, changedBy)
		if err != nil {
			switch {
			case errors.Is(err, core.ErrOrderNotFound):
				jsonError(w, http.StatusNotFound, err)
			case errors.Is(err, models.ErrInvalidTransition):
				jsonError(w, http.StatusConflict, err)
			default:
				jsonError(w, http.StatusInternalServerError, errors.New("failed to apply transition"))
			}
			return
		}

		jsonWrite(w, http.StatusOK, dto.TransitionResponse{
			OrderID:   event.OrderID,
			NewStatus: string(event.NewStatus),
			Sequence:  event.Sequence,
		})
	}
}

func (oh *OrderHandler) GetStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := oh.orderService.GetStatus(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			if errors.Is(err, core.ErrOrderNotFound) {
				jsonError(w, http.StatusNotFound, err)
				return
			}
			jsonError(w, http.StatusInternalServerError, errors.New("failed to get order status"))
			return
		}
		jsonWrite(w, http.StatusOK, resp)
	}
}

func (oh *OrderHandler) GetHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := oh.orderService.GetHistory(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			if errors.Is(err, core.ErrOrderNotFound) {
				jsonError(w, http.StatusNotFound, err)
				return
			}
			jsonError(w, http.StatusInternalServerError, errors.New("failed to get order history"))
			return
		}

		resp := make([]dto.HistoryEntry, 0, len(entries))
		for _, e := range entries {
			resp = append(resp, dto.HistoryEntry{
				Status:    string(e.Status),
				ChangedBy: e.ChangedBy,
				ChangedAt: e.ChangedAt,
			})
		}
		jsonWrite(w, http.StatusOK, resp)
	}
}

func (oh *OrderHandler) GetOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := oh.orderService.GetOrder(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			if errors.Is(err, core.ErrOrderNotFound) {
				jsonError(w, http.StatusNotFound, err)
				return
			}
			jsonError(w, http.StatusInternalServerError, errors.New("failed to get order"))
			return
		}
		jsonWrite(w, http.StatusOK, order)
	}
}

// ListActive serves the subscribe-time snapshot for kitchen/admin boards.
func (oh *OrderHandler) ListActive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orders, err := oh.orderService.ListActive(r.Context())
		if err != nil {
			jsonError(w, http.StatusInternalServerError, errors.New("failed to list orders"))
			return
		}
		if orders == nil {
			orders = []models.Order{}
		}
		jsonWrite(w, http.StatusOK, orders)
	}
}

func (oh *OrderHandler) SubmitRating() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.RatingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, http.StatusBadRequest, errors.New("malformed request body"))
			return
		}

		err := oh.orderService.SubmitRating(r.Context(), chi.URLParam(r, "id"), req)
		if err != nil {
			switch {
			case errors.Is(err, core.ErrOrderNotFound):
				jsonError(w, http.StatusNotFound, err)
			case errors.Is(err, models.ErrValidation), errors.Is(err, core.ErrRatingNotAllowed):
				jsonError(w, http.StatusBadRequest, err)
			default:
				jsonError(w, http.StatusBadGateway, errors.New("failed to submit rating"))
			}
			return
		}
		jsonWrite(w, http.StatusAccepted, map[string]string{"status": "accepted", "submitted_at": time.Now().UTC().Format(time.RFC3339)})
	}
}
