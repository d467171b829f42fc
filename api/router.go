package api

import (
	"context"
	_ "embed"
	"net/http"
	"path/filepath"

	"github.com/Domenick1991/flightorders/internal/service/flights"
	"github.com/Domenick1991/flightorders/internal/service/orders"
	"github.com/Domenick1991/flightorders/internal/service/users"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

const swaggerPath = "/swagger/flightorders.swagger.json"

//go:embed swagger/flightorders.swagger.json
var swaggerSpec []byte

type Dependencies struct {
	Flights flights.FlightUseCase
	Orders  orders.OrderUseCase
	Users   users.UserUseCase
	Tokens  TokenParser
	// Health reports backend readiness for /healthz. Optional.
	Health func(ctx context.Context) error
	// SwaggerDir overrides the embedded spec when set.
	SwaggerDir string
}

func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), AccessLog(), Metrics())

	authed := RequireAuth(deps.Tokens)
	staff := []gin.HandlerFunc{authed, RequireStaff()}

	userHandler := NewUserHandler(deps.Users)
	userHandler.RegisterAuth(r.Group("/auth"), authed)
	userHandler.RegisterUsers(r.Group("/users", staff...))
	NewFlightHandler(deps.Flights).Register(r.Group("/flights"), staff...)
	NewOrderHandler(deps.Orders).Register(r.Group("/orders", authed))

	r.GET("/healthz", func(c *gin.Context) {
		if deps.Health != nil {
			if err := deps.Health(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if deps.SwaggerDir != "" {
		r.StaticFile(swaggerPath, filepath.Join(deps.SwaggerDir, filepath.Base(swaggerPath)))
	} else {
		r.GET(swaggerPath, func(c *gin.Context) {
			c.Data(http.StatusOK, "application/json", swaggerSpec)
		})
	}
	r.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL(swaggerPath))))

	return r
}

func chain(mw []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	return append(append([]gin.HandlerFunc{}, mw...), h)
}
