package main

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/courtside-scheduler/internal/handler"
	internalmiddleware "github.com/noah-isme/courtside-scheduler/internal/middleware"
	"github.com/noah-isme/courtside-scheduler/internal/models"
	"github.com/noah-isme/courtside-scheduler/pkg/config"
)

type routeHandlers struct {
	schedule     *handler.ScheduleHandler
	blocks       *handler.BlockHandler
	availability *handler.AvailabilityHandler
	grid         *handler.GridHandler
	metrics      *handler.MetricsHandler
}

type tokenVerifier interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

func registerRoutes(r *gin.Engine, cfg *config.Config, h routeHandlers, verifier tokenVerifier) {
	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(verifier))

	read := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleOrganizer, models.RoleStaff)
	write := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleOrganizer)

	api.GET("/metrics/summary", write, h.metrics.Summary)

	events := api.Group("/events/:eventId")
	events.POST("/schedule/generate", write, h.schedule.Generate)
	events.GET("/conflicts", read, h.schedule.Conflicts)
	events.GET("/grid", read, h.grid.Grid)
	events.GET("/grid/export", read, h.grid.Export)
	events.GET("/blocks", read, h.blocks.List)
	events.PUT("/blocks", write, h.blocks.Replace)
	events.POST("/blocks/auto-allocate", write, h.blocks.AutoAllocate)
	events.GET("/availability", read, h.availability.List)
	events.PUT("/availability", write, h.availability.Replace)
	events.GET("/courts/:courtId/availability", read, h.availability.ResolveCourt)

	encounters := api.Group("/encounters/:id")
	encounters.POST("/assign", write, h.schedule.Assign)
	encounters.PUT("/move", write, h.schedule.Move)
	encounters.DELETE("/schedule", write, h.schedule.Unschedule)

	api.POST("/divisions/:divisionId/schedule/clear", write, h.schedule.ClearDivision)
}
