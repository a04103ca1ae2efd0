package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/zentat/internal/conversion"
	"github.com/GriffinCanCode/zentat/internal/detection"
	"github.com/GriffinCanCode/zentat/internal/settings"
)

// ConvertRequest carries either a document or plain text to convert
type ConvertRequest struct {
	HTML     string `json:"html"`
	Text     string `json:"text"`
	Hostname string `json:"hostname"`
}

// ParseRequest carries text to scan for prices
type ParseRequest struct {
	Text     string `json:"text" binding:"required"`
	Hostname string `json:"hostname"`
	// Currencies overrides the enabled currencies from settings.
	Currencies []string `json:"currencies"`
}

// Convert converts the prices in a document or a text snippet
func (h *Handlers) Convert(c *gin.Context) {
	var req ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid convert request"})
		return
	}

	switch {
	case req.HTML != "":
		snap, err := h.sessions.ConvertOnce(c.Request.Context(), req.HTML, req.Hostname)
		if err != nil {
			h.abort(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"html":      snap.HTML,
			"converted": snap.Converted,
			"marks":     snap.Marks,
		})
	case req.Text != "":
		current := h.settings.Get()
		if !current.Enabled || !settings.IsSiteAllowed(req.Hostname, current) {
			c.JSON(http.StatusOK, gin.H{"results": []conversion.Result{}, "skipped": 0})
			return
		}
		table := h.rates.Get()
		prices := h.parser.Parse(req.Text, current.Currencies, req.Hostname)
		results := make([]conversion.Result, 0, len(prices))
		skipped := 0
		for _, p := range prices {
			r, ok := conversion.Convert(p, table, current.Precision, h.opts.Unit)
			if !ok {
				h.metrics.RecordSkip("no_rate")
				skipped++
				continue
			}
			h.metrics.RecordConversion(r.Currency)
			results = append(results, r)
		}
		c.JSON(http.StatusOK, gin.H{"results": results, "skipped": skipped})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "html or text required"})
	}
}

// Parse returns the prices found in text without converting them
func (h *Handlers) Parse(c *gin.Context) {
	var req ParseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text required"})
		return
	}

	enabled := req.Currencies
	if len(enabled) == 0 {
		enabled = h.settings.Get().Currencies
	}
	prices := h.parser.Parse(req.Text, enabled, req.Hostname)
	if prices == nil {
		prices = []detection.ParsedPrice{}
	}

	c.JSON(http.StatusOK, gin.H{
		"prices":        prices,
		"count":         len(prices),
		"looks_like":    detection.LooksLikePrice(req.Text),
		"non_price":     detection.IsNonPrice(req.Text),
		"currencies":    enabled,
		"hostname_hint": hint(req.Hostname),
	})
}

func hint(hostname string) string {
	code, ok := detection.NewResolver().Hint(hostname)
	if !ok {
		return ""
	}
	return code
}
