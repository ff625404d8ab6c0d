package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/enterprise/fraud-dashboard/internal/auth"
	"github.com/enterprise/fraud-dashboard/internal/models"
	"github.com/enterprise/fraud-dashboard/internal/report"
	"github.com/enterprise/fraud-dashboard/internal/summary"
)

const (
	defaultPageSize = 5
	maxPageSize     = 100

	dashboardEvent = "dashboard"
	pingEvent      = "ping"
)

func healthHandler(views ViewSource, alertStats AlertStats, checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := "healthy"
		code := http.StatusOK
		results := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		body := gin.H{
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
			"revision":  views.Snapshot().Revision,
			"checks":    results,
		}
		if alertStats != nil {
			body["alerts"] = alertStats.GetMetrics()
		}

		c.JSON(code, body)
	}
}

func loginHandler(authenticator *auth.OperatorAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req auth.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		resp, err := authenticator.Login(&req)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, auth.ErrInvalidCredentials) {
				status = http.StatusUnauthorized
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}

func listCasesHandler(views ViewSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := getIntParam(c, "page", 1)
		pageSize := getIntParam(c, "page_size", defaultPageSize)
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		var filter models.Status
		if s := strings.TrimSpace(c.Query("status")); s != "" {
			var ok bool
			if filter, ok = parseStatus(s); !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown status %q", s)})
				return
			}
		}

		snap := views.Snapshot()

		cases := make([]models.CaseView, 0, len(snap.Cases))
		for _, t := range snap.Cases {
			v := models.NewCaseView(t)
			if filter != "" && v.Status != filter {
				continue
			}
			cases = append(cases, v)
		}

		total := len(cases)
		start, end := pageBounds(page, pageSize, total)

		c.JSON(http.StatusOK, gin.H{
			"cases":    cases[start:end],
			"revision": snap.Revision,
			"pagination": models.Pagination{
				Page:     page,
				PageSize: pageSize,
				Total:    total,
			},
		})
	}
}

func riskDistributionHandler(views ViewSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := views.Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"revision": snap.Revision,
			"entries":  snap.RiskDistribution,
		})
	}
}

func geoConcentrationHandler(views ViewSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := views.Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"revision": snap.Revision,
			"entries":  snap.GeoConcentration,
		})
	}
}

func dashboardHandler(views ViewSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, views.Snapshot())
	}
}

// eventsHandler streams every published snapshot as a server-sent event,
// starting with the current one
func eventsHandler(views ViewSource, interval time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		updates, cancel := views.Subscribe()
		defer cancel()

		// the server write timeout does not apply to long-lived streams
		_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

		heartbeat := time.NewTicker(interval)
		defer heartbeat.Stop()

		c.Header("Cache-Control", "no-cache")
		c.Header("X-Accel-Buffering", "no")

		c.SSEvent(dashboardEvent, views.Snapshot())
		c.Writer.Flush()

		c.Stream(func(w io.Writer) bool {
			select {
			case <-c.Request.Context().Done():
				return false
			case snap := <-updates:
				c.SSEvent(dashboardEvent, snap)
				return true
			case <-heartbeat.C:
				c.SSEvent(pingEvent, time.Now().Unix())
				return true
			}
		})
	}
}

func requestSummaryHandler(summaries SummaryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ClientID string `json:"client_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		result, err := summaries.Request(c.Request.Context(), req.ClientID)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, result)
		case errors.Is(err, summary.ErrClientIDRequired):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, summary.ErrSuperseded):
			c.JSON(http.StatusConflict, gin.H{
				"error":   err.Error(),
				"current": summaries.Current(),
			})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		}
	}
}

func currentSummaryHandler(summaries SummaryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		current := summaries.Current()
		if current == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no summary requested yet"})
			return
		}
		c.JSON(http.StatusOK, current)
	}
}

func exportReportHandler(reports ReportService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			StartDate string `json:"start_date"`
			EndDate   string `json:"end_date"`
		}
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		dateRange, err := report.ParseDateRange(req.StartDate, req.EndDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		doc, err := reports.Export(c.Request.Context(), dateRange)
		if err != nil {
			if errors.Is(err, report.ErrDateRangeRequired) {
				c.JSON(http.StatusBadRequest, gin.H{"error": report.ValidationMessage})
				return
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}

		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
		c.Data(http.StatusOK, doc.ContentType, doc.Data)
	}
}

// Helper functions

// pageBounds returns the slice bounds of a 1-based page, clamped to [0, total]
func pageBounds(page, pageSize, total int) (int, int) {
	if page-1 > total/pageSize {
		return total, total
	}
	start := (page - 1) * pageSize
	end := total
	if pageSize < total-start {
		end = start + pageSize
	}
	return start, end
}

func getIntParam(c *gin.Context, key string, defaultValue int) int {
	if val := c.Query(key); val != "" {
		if result, err := strconv.Atoi(val); err == nil && result > 0 {
			return result
		}
	}
	return defaultValue
}

func parseStatus(s string) (models.Status, bool) {
	for _, status := range []models.Status{
		models.StatusSafe,
		models.StatusMonitor,
		models.StatusReview,
		models.StatusLocked,
		models.StatusUnknown,
	} {
		if strings.EqualFold(s, string(status)) {
			return status, true
		}
	}
	return "", false
}
