package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/zentat/internal/settings"
)

// GetRates returns the current rate table
func (h *Handlers) GetRates(c *gin.Context) {
	table := h.rates.Get()
	c.JSON(http.StatusOK, gin.H{
		"rates":     table.Rates,
		"updatedAt": table.UpdatedAtMillis(),
		"source":    table.Source,
		"stale":     table.IsStale(time.Now(), h.opts.RatesMaxAge),
	})
}

// RefreshRates fetches a new rate table from the configured sources
func (h *Handlers) RefreshRates(c *gin.Context) {
	if len(h.opts.Sources) == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no rate sources configured"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	table, err := h.rates.Refresh(ctx, h.opts.Sources...)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"source":     table.Source,
		"currencies": table.Currencies(),
		"updatedAt":  table.UpdatedAtMillis(),
	})
}

// GetSettings returns the current settings
func (h *Handlers) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings.Get().ToDocument())
}

// UpdateSettings applies a partial settings document
func (h *Handlers) UpdateSettings(c *gin.Context) {
	var doc settings.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid settings document"})
		return
	}
	next, err := h.settings.Update(doc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, next.ToDocument())
}

// SiteAllowed reports whether conversion runs on a hostname
func (h *Handlers) SiteAllowed(c *gin.Context) {
	hostname := c.Query("hostname")
	current := h.settings.Get()
	c.JSON(http.StatusOK, gin.H{
		"hostname": hostname,
		"allowed":  settings.IsSiteAllowed(hostname, current),
		"enabled":  current.Enabled,
		"mode":     current.SiteMode,
	})
}
