package handlers

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/helpdesk-proxy/backend/internal/models"
	"github.com/helpdesk-proxy/backend/internal/service"
	"github.com/helpdesk-proxy/backend/internal/store"
)

type Handler struct {
	Store          *store.Store
	Pipeline       *service.Pipeline
	Updater        *service.Updater
	Validator      *validator.Validate
	Logger         zerolog.Logger
	RequestTimeout time.Duration
}

// tenantKeyRE matches keys the partitioner emits; anything else in the URL
// is rejected before touching the filesystem.
var tenantKeyRE = regexp.MustCompile(`^[a-z0-9_-]+$`)

func (h *Handler) Healthz(c *gin.Context) {
	if _, err := h.Store.ListTenants(); err != nil {
		writeError(c, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Data directory unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary List simplified tickets
// @Tags tickets
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} map[string]any
// @Router /api/tickets [get]
func (h *Handler) TicketsList(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	tickets := h.Store.LoadSimplifiedTicketsOptional()
	total := len(tickets)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	c.JSON(http.StatusOK, gin.H{
		"items":  tickets[offset:end],
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// @Summary Company table
// @Tags companies
// @Produce json
// @Success 200 {array} models.CompanyRecord
// @Router /api/companies [get]
func (h *Handler) CompaniesList(c *gin.Context) {
	companies := h.Store.LoadCompaniesOptional()
	if companies == nil {
		companies = []models.CompanyRecord{}
	}
	c.JSON(http.StatusOK, companies)
}

// @Summary Unified company groups
// @Tags groups
// @Produce json
// @Success 200 {object} map[string]models.UnifiedGroup
// @Router /api/groups [get]
func (h *Handler) GroupsList(c *gin.Context) {
	c.JSON(http.StatusOK, h.Store.LoadGroupsOptional())
}

// @Summary List tenant keys
// @Tags tenants
// @Produce json
// @Success 200 {array} string
// @Router /api/tenants [get]
func (h *Handler) TenantsList(c *gin.Context) {
	tenants, err := h.Store.ListTenants()
	if err != nil {
		writeError(c, http.StatusInternalServerError, "STORE_ERROR", "Failed to list tenants", err.Error())
		return
	}
	if tenants == nil {
		tenants = []string{}
	}
	c.JSON(http.StatusOK, tenants)
}

// @Summary Tickets of one tenant
// @Tags tenants
// @Produce json
// @Param name path string true "Tenant key"
// @Success 200 {array} models.SimplifiedTicket
// @Failure 404 {object} map[string]any
// @Router /api/tenant/{name} [get]
func (h *Handler) TenantDetails(c *gin.Context) {
	name := c.Param("name")
	if !tenantKeyRE.MatchString(name) {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid tenant key", nil)
		return
	}
	tickets, err := h.Store.LoadTenant(name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Tenant not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "STORE_ERROR", "Failed to load tenant", err.Error())
		return
	}
	c.JSON(http.StatusOK, tickets)
}

// @Summary Weekday distribution of one tenant
// @Tags tenants
// @Produce json
// @Param name path string true "Tenant key"
// @Success 200 {object} models.WeekdayAnalysis
// @Failure 404 {object} map[string]any
// @Router /api/tenant/{name}/weekdays [get]
func (h *Handler) TenantWeekdays(c *gin.Context) {
	name := c.Param("name")
	if !tenantKeyRE.MatchString(name) {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid tenant key", nil)
		return
	}
	analysis, err := h.Pipeline.TenantWeekdays(name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Tenant not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "STORE_ERROR", "Failed to analyze tenant", err.Error())
		return
	}
	c.JSON(http.StatusOK, analysis)
}

// @Summary Update history
// @Tags updates
// @Produce json
// @Success 200 {object} models.UpdateHistory
// @Router /api/history [get]
func (h *Handler) History(c *gin.Context) {
	c.JSON(http.StatusOK, h.Store.LoadHistory())
}

// @Summary Incremental update of one company or group
// @Tags updates
// @Produce json
// @Param company path string true "Company or group name"
// @Success 200 {object} service.UpdateSummary
// @Failure 404 {object} map[string]any
// @Failure 409 {object} map[string]any
// @Router /api/update/{company} [post]
func (h *Handler) Update(c *gin.Context) {
	name := c.Param("company")
	if err := h.Validator.Var(name, "required,min=2,max=120"); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid company name", err.Error())
		return
	}

	ctx, cancel := h.runContext(c)
	defer cancel()

	summary, err := h.Updater.Update(ctx, name)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrLocked):
			writeError(c, http.StatusConflict, "RUN_IN_PROGRESS", "Another run is in progress", nil)
		case errors.Is(err, service.ErrTargetNotFound):
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Company or group not found", err.Error())
		default:
			h.Logger.Error().Err(err).Str("target", name).Msg("incremental update failed")
			writeError(c, http.StatusInternalServerError, "UPDATE_ERROR", "Update failed", err.Error())
		}
		return
	}
	c.JSON(http.StatusOK, summary)
}

// @Summary Rebuild the whole pipeline
// @Tags updates
// @Produce json
// @Success 200 {object} service.RebuildSummary
// @Failure 409 {object} map[string]any
// @Router /api/rebuild [post]
func (h *Handler) Rebuild(c *gin.Context) {
	release, err := h.Store.Lock()
	if err != nil {
		if errors.Is(err, store.ErrLocked) {
			writeError(c, http.StatusConflict, "RUN_IN_PROGRESS", "Another run is in progress", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "STORE_ERROR", "Failed to acquire run lock", err.Error())
		return
	}
	defer release()

	summary, err := h.Pipeline.Rebuild()
	if err != nil {
		h.Logger.Error().Err(err).Msg("rebuild failed")
		if errors.Is(err, store.ErrNotFound) {
			writeError(c, http.StatusPreconditionFailed, "MISSING_INPUT", "Required input document missing", err.Error())
			return
		}
		writeError(c, http.StatusInternalServerError, "PIPELINE_ERROR", "Rebuild failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) runContext(c *gin.Context) (context.Context, context.CancelFunc) {
	timeout := h.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return context.WithTimeout(c.Request.Context(), timeout)
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
