package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/helpdesk-proxy/backend/internal/config"
	"github.com/helpdesk-proxy/backend/internal/http/handlers"
	"github.com/helpdesk-proxy/backend/internal/http/middleware"
	"github.com/helpdesk-proxy/backend/internal/service"
	"github.com/helpdesk-proxy/backend/internal/store"

	_ "github.com/helpdesk-proxy/backend/docs"
)

func Router(cfg config.Config, st *store.Store, pipeline *service.Pipeline, updater *service.Updater, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Admin-Key", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Store:          st,
		Pipeline:       pipeline,
		Updater:        updater,
		Validator:      validator.New(),
		Logger:         logger,
		RequestTimeout: cfg.RequestTimeout,
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.GET("/tickets", h.TicketsList)
		api.GET("/companies", h.CompaniesList)
		api.GET("/groups", h.GroupsList)
		api.GET("/tenants", h.TenantsList)
		api.GET("/tenant/:name", h.TenantDetails)
		api.GET("/tenant/:name/weekdays", h.TenantWeekdays)
		api.GET("/history", h.History)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/update/:company", h.Update)
		admin.POST("/rebuild", h.Rebuild)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
