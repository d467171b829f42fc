package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/flightorders/internal/domain"
	"github.com/Domenick1991/flightorders/internal/repository"
	"github.com/Domenick1991/flightorders/internal/service/flights"
	"github.com/gin-gonic/gin"
)

type FlightHandler struct {
	service flights.FlightUseCase
}

func NewFlightHandler(service flights.FlightUseCase) *FlightHandler {
	return &FlightHandler{service: service}
}

// Register mounts the public reads on router and the writes behind staff.
func (h *FlightHandler) Register(router *gin.RouterGroup, staff ...gin.HandlerFunc) {
	router.GET("", h.list)
	router.GET("/:id", h.get)

	router.POST("", chain(staff, h.create)...)
	router.PATCH("/:id", chain(staff, h.update)...)
	router.PUT("/:id", chain(staff, h.update)...)
	router.DELETE("/:id", chain(staff, h.delete)...)
}

type flightResponse struct {
	ID                 int64   `json:"id"`
	FlightNum          string  `json:"flight_num"`
	OriginCountry      string  `json:"origin_country"`
	OriginCity         string  `json:"origin_city"`
	OriginCode         string  `json:"origin_code"`
	DestinationCountry string  `json:"destination_country"`
	DestinationCity    string  `json:"destination_city"`
	DestinationCode    string  `json:"destination_code"`
	OriginTime         string  `json:"origin_time"`
	DestinationTime    string  `json:"destination_time"`
	TotalSeats         int     `json:"total_seats"`
	SeatsLeft          int     `json:"seats_left"`
	IsCancelled        bool    `json:"is_cancelled"`
	Price              float64 `json:"price"`
}

func newFlightResponse(f *domain.Flight) flightResponse {
	return flightResponse{
		ID:                 f.ID,
		FlightNum:          f.FlightNum,
		OriginCountry:      f.OriginCountry,
		OriginCity:         f.OriginCity,
		OriginCode:         f.OriginCode,
		DestinationCountry: f.DestinationCountry,
		DestinationCity:    f.DestinationCity,
		DestinationCode:    f.DestinationCode,
		OriginTime:         f.OriginTime.Format(domain.FlightTimeOutputLayout),
		DestinationTime:    f.DestinationTime.Format(domain.FlightTimeOutputLayout),
		TotalSeats:         f.TotalSeats,
		SeatsLeft:          f.SeatsLeft,
		IsCancelled:        f.IsCancelled,
		Price:              f.Price,
	}
}

type createFlightRequest struct {
	FlightNum          string   `json:"flight_num" binding:"required"`
	OriginCountry      string   `json:"origin_country" binding:"required"`
	OriginCity         string   `json:"origin_city" binding:"required"`
	OriginCode         string   `json:"origin_code" binding:"required"`
	DestinationCountry string   `json:"destination_country" binding:"required"`
	DestinationCity    string   `json:"destination_city" binding:"required"`
	DestinationCode    string   `json:"destination_code" binding:"required"`
	OriginDT           string   `json:"origin_dt" binding:"required"`
	DestinationDT      string   `json:"destination_dt" binding:"required"`
	TotalSeats         *int     `json:"total_seats" binding:"required"`
	SeatsLeft          *int     `json:"seats_left"`
	IsCancelled        bool     `json:"is_cancelled"`
	Price              *float64 `json:"price" binding:"required"`
}

type updateFlightRequest struct {
	FlightNum          *string  `json:"flight_num"`
	OriginCountry      *string  `json:"origin_country"`
	OriginCity         *string  `json:"origin_city"`
	OriginCode         *string  `json:"origin_code"`
	DestinationCountry *string  `json:"destination_country"`
	DestinationCity    *string  `json:"destination_city"`
	DestinationCode    *string  `json:"destination_code"`
	OriginDT           *string  `json:"origin_dt"`
	DestinationDT      *string  `json:"destination_dt"`
	TotalSeats         *int     `json:"total_seats"`
	SeatsLeft          *int     `json:"seats_left"`
	IsCancelled        *bool    `json:"is_cancelled"`
	Price              *float64 `json:"price"`
}

func (h *FlightHandler) list(c *gin.Context) {
	filter, ok, err := flightFilterFromQuery(c)
	if err != nil {
		writeError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusOK, []flightResponse{})
		return
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]flightResponse, 0, len(result))
	for i := range result {
		resp = append(resp, newFlightResponse(&result[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// flightFilterFromQuery returns ok=false when a date filter cannot be
// parsed, which matches nothing.
func flightFilterFromQuery(c *gin.Context) (repository.FlightFilter, bool, error) {
	filter := repository.FlightFilter{
		OriginCity:      c.Query("origin_city"),
		DestinationCity: c.Query("destination_city"),
		FlightNum:       c.Query("flight_num"),
	}

	for _, p := range []struct {
		name string
		dst  **float64
	}{{"min_price", &filter.MinPrice}, {"max_price", &filter.MaxPrice}} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return filter, false, domain.NewValidationError(p.name, "enter a number")
		}
		*p.dst = &v
	}

	if raw := c.Query("is_cancelled"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, false, domain.NewValidationError("is_cancelled", "enter true or false")
		}
		filter.IsCancelled = &v
	}

	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"origin_date", &filter.DepartsFrom}, {"destination_date", &filter.ArrivesBy}} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		t, ok := domain.ParseFilterDate(raw)
		if !ok {
			return filter, false, nil
		}
		*p.dst = &t
	}
	return filter, true, nil
}

func (h *FlightHandler) get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	flight, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newFlightResponse(flight))
}

func (h *FlightHandler) create(c *gin.Context) {
	var req createFlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	origin, err := domain.ParseFlightTime("origin_dt", req.OriginDT)
	if err != nil {
		writeError(c, err)
		return
	}
	destination, err := domain.ParseFlightTime("destination_dt", req.DestinationDT)
	if err != nil {
		writeError(c, err)
		return
	}

	flight, err := h.service.Create(c.Request.Context(), flights.CreateFlightInput{
		FlightNum:          req.FlightNum,
		OriginCountry:      req.OriginCountry,
		OriginCity:         req.OriginCity,
		OriginCode:         req.OriginCode,
		DestinationCountry: req.DestinationCountry,
		DestinationCity:    req.DestinationCity,
		DestinationCode:    req.DestinationCode,
		OriginTime:         origin,
		DestinationTime:    destination,
		TotalSeats:         *req.TotalSeats,
		SeatsLeft:          req.SeatsLeft,
		IsCancelled:        req.IsCancelled,
		Price:              *req.Price,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newFlightResponse(flight))
}

func (h *FlightHandler) update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateFlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	input := flights.UpdateFlightInput{
		FlightNum:          req.FlightNum,
		OriginCountry:      req.OriginCountry,
		OriginCity:         req.OriginCity,
		OriginCode:         req.OriginCode,
		DestinationCountry: req.DestinationCountry,
		DestinationCity:    req.DestinationCity,
		DestinationCode:    req.DestinationCode,
		TotalSeats:         req.TotalSeats,
		SeatsLeft:          req.SeatsLeft,
		IsCancelled:        req.IsCancelled,
		Price:              req.Price,
	}
	if req.OriginDT != nil {
		t, err := domain.ParseFlightTime("origin_dt", *req.OriginDT)
		if err != nil {
			writeError(c, err)
			return
		}
		input.OriginTime = &t
	}
	if req.DestinationDT != nil {
		t, err := domain.ParseFlightTime("destination_dt", *req.DestinationDT)
		if err != nil {
			writeError(c, err)
			return
		}
		input.DestinationTime = &t
	}

	flight, err := h.service.Update(c.Request.Context(), id, input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newFlightResponse(flight))
}

func (h *FlightHandler) delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}
