package api

import (
	"net/http"
	"strconv"

	"github.com/Domenick1991/flightorders/internal/domain"
	"github.com/Domenick1991/flightorders/internal/metrics"
	"github.com/Domenick1991/flightorders/internal/repository"
	"github.com/Domenick1991/flightorders/internal/service/orders"
	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	service orders.OrderUseCase
}

func NewOrderHandler(service orders.OrderUseCase) *OrderHandler {
	return &OrderHandler{service: service}
}

// Register expects router to be behind RequireAuth.
func (h *OrderHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.POST("", h.create)
	router.GET("/:id", h.get)
	router.PATCH("/:id", h.update)
	router.PUT("/:id", h.update)
	router.DELETE("/:id", h.delete)
	router.GET("/:id/history", RequireStaff(), h.history)
}

type orderResponse struct {
	ID            int64   `json:"id"`
	Flight        int64   `json:"flight"`
	FlightNum     string  `json:"flight_num"`
	User          int64   `json:"user"`
	UserName      string  `json:"user_name"`
	Seats         int     `json:"seats"`
	DateSubmitted string  `json:"date_submitted"`
	TotalPrice    float64 `json:"total_price"`
}

func newOrderResponse(o *domain.Order) orderResponse {
	return orderResponse{
		ID:            o.ID,
		Flight:        o.FlightID,
		FlightNum:     o.FlightNum,
		User:          o.UserID,
		UserName:      o.UserName,
		Seats:         o.Seats,
		DateSubmitted: o.OrderDate.Format(domain.OrderDateLayout),
		TotalPrice:    o.TotalPrice,
	}
}

type historyResponse struct {
	EventID       string  `json:"event_id"`
	EventType     string  `json:"event_type"`
	Seats         int     `json:"seats"`
	PreviousSeats int     `json:"previous_seats"`
	SeatsLeft     int     `json:"seats_left"`
	TotalPrice    float64 `json:"total_price"`
	OccurredAt    string  `json:"occurred_at"`
}

type createOrderRequest struct {
	Flight int64  `json:"flight" binding:"required"`
	Seats  *int   `json:"seats" binding:"required"`
	User   *int64 `json:"user"`
}

type updateOrderRequest struct {
	Seats *int `json:"seats" binding:"required"`
}

func (h *OrderHandler) list(c *gin.Context) {
	uid, staff := caller(c)
	filter := repository.OrderFilter{
		FlightNum: c.Query("flight_num"),
		Name:      domain.ParseNameQuery(c.Query("name")),
	}
	if raw := c.Query("flight_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(c, "invalid flight_id")
			return
		}
		filter.FlightID = id
	}
	if !staff {
		filter.UserID = uid
	}

	result, err := h.service.ListOrders(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := make([]orderResponse, 0, len(result))
	for i := range result {
		resp = append(resp, newOrderResponse(&result[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *OrderHandler) create(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	uid, staff := caller(c)
	userID := uid
	if req.User != nil && *req.User != uid {
		if !staff {
			writeError(c, domain.ErrForbidden)
			return
		}
		userID = *req.User
	}

	order, err := h.service.CreateOrder(c.Request.Context(), orders.CreateOrderInput{
		FlightID: req.Flight,
		UserID:   userID,
		Seats:    *req.Seats,
	})
	metrics.OrderOperations.WithLabelValues("create", outcome(err)).Inc()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newOrderResponse(order))
}

// owned loads the order and checks the caller may touch it.
func (h *OrderHandler) owned(c *gin.Context) (*domain.Order, bool) {
	id, ok := pathID(c)
	if !ok {
		return nil, false
	}
	order, err := h.service.GetOrder(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	uid, staff := caller(c)
	if !staff && order.UserID != uid {
		writeError(c, domain.ErrForbidden)
		return nil, false
	}
	return order, true
}

func (h *OrderHandler) get(c *gin.Context) {
	order, ok := h.owned(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(order))
}

func (h *OrderHandler) update(c *gin.Context) {
	current, ok := h.owned(c)
	if !ok {
		return
	}
	var req updateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	order, err := h.service.UpdateOrder(c.Request.Context(), current.ID, *req.Seats)
	metrics.OrderOperations.WithLabelValues("update", outcome(err)).Inc()
	if err != nil {
		writeError(c, err)
		return
	}
	order.UserName = current.UserName
	c.JSON(http.StatusOK, newOrderResponse(order))
}

func (h *OrderHandler) delete(c *gin.Context) {
	current, ok := h.owned(c)
	if !ok {
		return
	}
	err := h.service.DeleteOrder(c.Request.Context(), current.ID)
	metrics.OrderOperations.WithLabelValues("delete", outcome(err)).Inc()
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *OrderHandler) history(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	entries, err := h.service.History(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := make([]historyResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, historyResponse{
			EventID:       e.EventID,
			EventType:     e.EventType,
			Seats:         e.Seats,
			PreviousSeats: e.PrevSeats,
			SeatsLeft:     e.SeatsLeft,
			TotalPrice:    e.TotalPrice,
			OccurredAt:    e.OccurredAt.Format(domain.FlightTimeOutputLayout),
		})
	}
	c.JSON(http.StatusOK, resp)
}
