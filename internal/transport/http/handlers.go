package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"grubdash/internal/models"
	"grubdash/internal/service"
)

const msgInvalidJSON = "Request body must be valid JSON"

type OrderHandler struct {
	service service.OrderService
}

func NewOrderHandler(srv service.OrderService) *OrderHandler {
	return &OrderHandler{service: srv}
}

// List godoc
// @Summary List orders
// @Description Returns all orders in creation order, optionally only the one with the given id
// @Tags orders
// @Produce json
// @Param orderId query string false "Only return the order with this id"
// @Success 200 {object} models.DataResponse{data=[]models.Order}
// @Router /orders [get]
func (h *OrderHandler) List() http.HandlerFunc {
	return Guards().Then(h.list)
}

// Read godoc
// @Summary Get order
// @Tags orders
// @Produce json
// @Param orderId path string true "Order ID"
// @Success 200 {object} models.DataResponse{data=models.Order}
// @Failure 404 {object} models.APIError
// @Router /orders/{orderId} [get]
func (h *OrderHandler) Read() http.HandlerFunc {
	return Guards(h.orderExists).Then(h.read)
}

// Create godoc
// @Summary Create order
// @Description Status defaults to pending when omitted
// @Tags orders
// @Accept json
// @Produce json
// @Param order body models.OrderRequest true "Order"
// @Success 201 {object} models.DataResponse{data=models.Order}
// @Failure 400 {object} models.APIError
// @Router /orders [post]
func (h *OrderHandler) Create() http.HandlerFunc {
	return Guards(h.decodeBody, h.fieldsValid).Then(h.create)
}

// Update godoc
// @Summary Update order
// @Description Replaces every field except the id. Delivered orders are immutable.
// @Tags orders
// @Accept json
// @Produce json
// @Param orderId path string true "Order ID"
// @Param order body models.OrderRequest true "Order"
// @Success 200 {object} models.DataResponse{data=models.Order}
// @Failure 400 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Router /orders/{orderId} [put]
func (h *OrderHandler) Update() http.HandlerFunc {
	return Guards(h.orderExists, h.decodeBody, h.fieldsValid, h.statusChangeValid).Then(h.update)
}

// Delete godoc
// @Summary Delete order
// @Description Only pending orders can be deleted
// @Tags orders
// @Param orderId path string true "Order ID"
// @Success 204
// @Failure 400 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Router /orders/{orderId} [delete]
func (h *OrderHandler) Delete() http.HandlerFunc {
	return Guards(h.orderExists, h.deletable).Then(h.destroy)
}

// Guards

func (h *OrderHandler) orderExists(r *http.Request, ex *Exchange) error {
	order, err := h.service.GetByID(r.Context(), ex.OrderID)
	if err != nil {
		return notFoundOr(err)
	}
	ex.Order = order
	return nil
}

func (h *OrderHandler) decodeBody(r *http.Request, ex *Exchange) error {
	var req models.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return models.NewBadRequest(msgInvalidJSON)
	}
	ex.Input = req.Data
	return nil
}

func (h *OrderHandler) fieldsValid(_ *http.Request, ex *Exchange) error {
	dishes, err := ex.Input.ValidateFields()
	if err != nil {
		return err
	}
	ex.Dishes = dishes
	return nil
}

func (h *OrderHandler) statusChangeValid(_ *http.Request, ex *Exchange) error {
	return ex.Input.ValidateStatusChange(ex.OrderID, ex.Order.Status)
}

func (h *OrderHandler) deletable(_ *http.Request, ex *Exchange) error {
	return ex.Order.ValidateDeletion()
}

// Terminals

func (h *OrderHandler) list(r *http.Request, _ *Exchange) (int, any, error) {
	orders, err := h.service.List(r.Context(), r.URL.Query().Get("orderId"))
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, orders, nil
}

func (h *OrderHandler) read(_ *http.Request, ex *Exchange) (int, any, error) {
	return http.StatusOK, ex.Order, nil
}

func (h *OrderHandler) create(r *http.Request, ex *Exchange) (int, any, error) {
	order, err := h.service.Create(r.Context(), models.Order{
		DeliverTo:    ex.Input.DeliverTo,
		MobileNumber: ex.Input.MobileNumber,
		Status:       ex.Input.Status,
		Dishes:       ex.Dishes,
	})
	if err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, order, nil
}

func (h *OrderHandler) update(r *http.Request, ex *Exchange) (int, any, error) {
	order, err := h.service.Update(r.Context(), models.Order{
		ID:           ex.Order.ID,
		DeliverTo:    ex.Input.DeliverTo,
		MobileNumber: ex.Input.MobileNumber,
		Status:       ex.Input.Status,
		Dishes:       ex.Dishes,
	})
	if err != nil {
		return 0, nil, notFoundOr(err)
	}
	return http.StatusOK, order, nil
}

func (h *OrderHandler) destroy(r *http.Request, ex *Exchange) (int, any, error) {
	if err := h.service.Delete(r.Context(), ex.Order.ID); err != nil {
		return 0, nil, notFoundOr(err)
	}
	return http.StatusNoContent, nil, nil
}

// notFoundOr turns a missing order into a 404 and passes other errors through.
func notFoundOr(err error) error {
	var notFound models.OrderNotFoundError
	if errors.As(err, &notFound) {
		return models.NewNotFound(notFound.Error())
	}
	return err
}

// Health godoc
// @Summary Liveness probe
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// NotFound answers requests for paths no route matches.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, models.NewNotFound("Path not found: "+r.URL.Path), http.StatusNotFound)
}

func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, models.NewMethodNotAllowed(r.Method, r.URL.Path), http.StatusMethodNotAllowed)
}
