package handle

import (
	"encoding/json"
	"errors"
	"net/http"

	"tableflow/internal/orderhub/app/services"
	"tableflow/internal/orderhub/domain/dto"
	"tableflow/internal/xpkg/logger"
)

type OrderHandler struct {
	orderService *services.OrderService
	mylog        logger.Logger
}

func NewOrderHandler(orderService *services.OrderService, mylog logger.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		mylog:        mylog,
	}
}

func (oh *OrderHandler) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := principal(w, r)
		if !ok {
			return
		}

		var req dto.CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			oh.mylog.Action("parse_failed").Warn("failed to parse order body")
			jsonError(w, http.StatusBadRequest, errors.New("failed to parse JSON"))
			return
		}

		order, err := oh.orderService.PlaceOrder(r.Context(), actor, req)
		if err != nil {
			serviceError(w, err)
			return
		}
		jsonResponse(w, http.StatusCreated, order)
	}
}

// Transition moves one item to the requested status. Re-applying the current
// status is a successful no-op.
func (oh *OrderHandler) Transition() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := principal(w, r)
		if !ok {
			return
		}

		var req dto.ItemStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, http.StatusBadRequest, errors.New("failed to parse JSON"))
			return
		}

		resp, err := oh.orderService.Transition(r.Context(),
			actor, r.PathValue("number"), r.PathValue("item"), req.Status)
		if err != nil {
			serviceError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, resp)
	}
}

func (oh *OrderHandler) Close() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := principal(w, r)
		if !ok {
			return
		}

		order, err := oh.orderService.CloseOrder(r.Context(), actor, r.PathValue("number"))
		if err != nil {
			serviceError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, order)
	}
}

// Get returns the order with its transition log, the reconciliation snapshot
// clients pull after a stream reconnect.
func (oh *OrderHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := principal(w, r)
		if !ok {
			return
		}

		detail, err := oh.orderService.GetOrder(r.Context(), actor, r.PathValue("number"))
		if err != nil {
			serviceError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, detail)
	}
}

// List returns active orders for staff displays; ?station= narrows to one
// kitchen station.
func (oh *OrderHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := principal(w, r)
		if !ok {
			return
		}

		orders, err := oh.orderService.KitchenOrders(r.Context(), actor, r.URL.Query().Get("station"))
		if err != nil {
			serviceError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, orders)
	}
}
