package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Resanso/aquaseer-api/internal/auth"
	"github.com/Resanso/aquaseer-api/internal/influxdb"
	"github.com/Resanso/aquaseer-api/internal/metrics"
	"github.com/Resanso/aquaseer-api/internal/processing"
	"github.com/Resanso/aquaseer-api/internal/simulation"
	"github.com/Resanso/aquaseer-api/internal/stream"
)

// ReadingStore serves recorded readings. *influxdb.Client satisfies it.
type ReadingStore interface {
	RecentSensorReadings(ctx context.Context, sensorID string, lookback time.Duration, limit int) ([]influxdb.SensorReading, error)
	Ping(ctx context.Context) error
}

// Pinger reports backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// TextGenerator produces a model answer. *llm.Client satisfies it.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt string, userParts ...string) (string, error)
}

// Dependencies groups objects the HTTP layer needs. Everything except
// Simulator is optional.
type Dependencies struct {
	Simulator   *simulation.Simulator
	Auth        auth.Gateway
	Influx      ReadingStore
	Accounts    Pinger
	LLM         TextGenerator
	Alerts      *processing.AlertService
	Hub         *stream.Hub
	Metrics     *metrics.Metrics
	CORSOrigins []string
}

// NewRouter configures all HTTP routes.
func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.Default()
	r.Use(corsMiddleware(deps.CORSOrigins))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/api/influx/ping", pingHandler("influx", deps.Influx))
	r.GET("/api/mysql/ping", pingHandler("mysql", deps.Accounts))

	authRoutes := r.Group("/api/auth")
	{
		authRoutes.POST("/signin", func(c *gin.Context) { HandleSignIn(c, deps) })
		authRoutes.POST("/signup", func(c *gin.Context) { HandleSignUp(c, deps) })
		authRoutes.POST("/signout", func(c *gin.Context) { HandleSignOut(c, deps) })
		authRoutes.GET("/me", func(c *gin.Context) { HandleCurrentUser(c, deps) })
	}

	api := r.Group("/api", requireSession(deps.Auth))
	{
		api.GET("/schedules", HandleListSchedules)
		api.GET("/sensors", func(c *gin.Context) { HandleListSensors(c, deps) })
		api.POST("/sensors", func(c *gin.Context) { HandleAddSensor(c, deps) })
		api.GET("/sensors/:id", func(c *gin.Context) { HandleGetSensor(c, deps) })
		api.GET("/sensors/:id/history", func(c *gin.Context) { HandleSensorHistory(c, deps) })
		api.GET("/sensors/:id/readings", func(c *gin.Context) { HandleSensorReadings(c, deps) })
		api.GET("/alerts", func(c *gin.Context) { HandleListAlerts(c, deps) })
		api.POST("/chat/query", func(c *gin.Context) { HandleChatQuery(c, deps) })

		api.GET("/simulation/status", func(c *gin.Context) {
			if deps.Simulator == nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"running": false})
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"running":  deps.Simulator.Enabled(),
				"interval": deps.Simulator.Interval().String(),
				"sensors":  deps.Simulator.List(),
			})
		})
	}

	r.GET("/ws", requireSession(deps.Auth), func(c *gin.Context) { HandleStream(c, deps) })

	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		return cors.Default()
	}
	cfg := cors.DefaultConfig()
	cfg.AllowOrigins = origins
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization")
	cfg.AllowCredentials = true
	return cors.New(cfg)
}

func pingHandler(backend string, p Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "missing client"})
			return
		}
		if err := p.Ping(c.Request.Context()); err != nil {
			log.Printf("%s ping failed: %v", backend, err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
