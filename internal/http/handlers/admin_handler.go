// Package handlers – management endpoints: settings, keyword rules, the
// workbook export task, queue stats, gateway session control, and bug
// report triage.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/oaddad/nucleo-backend/internal/domain"
	"github.com/oaddad/nucleo-backend/internal/queue"
	"github.com/oaddad/nucleo-backend/internal/repo"
	"github.com/oaddad/nucleo-backend/internal/utils"
)

// ListSettings returns the whole settings map.
func (h *Handler) ListSettings(c *gin.Context) {
	settings, err := repo.AllSettings(c.Request.Context(), h.DB)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not load settings")
		return
	}
	ok(c, http.StatusOK, settings)
}

// putSettingRequest is the payload for PUT /settings/:key.
type putSettingRequest struct {
	Value string `json:"value"`
}

// PutSetting upserts one settings entry. Changes take effect on the next
// read; no restart is needed.
func (h *Handler) PutSetting(c *gin.Context) {
	var req putSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "value is required")
		return
	}
	key := c.Param("key")
	if key == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "key is required")
		return
	}
	if err := repo.SetSetting(c.Request.Context(), h.DB, key, req.Value); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not save setting")
		return
	}
	noContent(c)
}

// ListKeywordRules returns all auto-reply rules, active and inactive.
func (h *Handler) ListKeywordRules(c *gin.Context) {
	rules, err := repo.ListKeywordRules(c.Request.Context(), h.DB)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list keyword rules")
		return
	}
	ok(c, http.StatusOK, rules)
}

// createKeywordRuleRequest is the payload for POST /keyword-rules.
type createKeywordRuleRequest struct {
	Keywords  []string `json:"keywords" binding:"required,min=1"`
	Response  string   `json:"response" binding:"required"`
	Active    *bool    `json:"active"`
	Priority  int      `json:"priority"`
	MatchType string   `json:"match_type"`
}

// CreateKeywordRule registers a deterministic auto-reply rule.
func (h *Handler) CreateKeywordRule(c *gin.Context) {
	var req createKeywordRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "keywords and response are required")
		return
	}
	keywords, err := json.Marshal(req.Keywords)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "keywords must be a string array")
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	priority := req.Priority
	if priority == 0 {
		priority = 100
	}
	rule := &domain.KeywordRule{
		Keywords:  string(keywords),
		Response:  req.Response,
		Active:    active,
		Priority:  priority,
		MatchType: domain.MatchType(req.MatchType),
	}
	if err := repo.CreateKeywordRule(c.Request.Context(), h.DB, rule); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, "could not create keyword rule")
		return
	}
	ok(c, http.StatusCreated, rule)
}

// DeleteKeywordRule removes a rule by id.
func (h *Handler) DeleteKeywordRule(c *gin.Context) {
	err := repo.DeleteKeywordRule(c.Request.Context(), h.DB, c.Param("id"))
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "keyword rule not found")
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not delete keyword rule")
	default:
		noContent(c)
	}
}

// ExportWorkbook godoc
// @Summary  Queue a workbook mirror export
// @Tags     admin
// @Produce  json
// @Success  202 {object} map[string]string
// @Failure  503 {object} ErrorResponse
// @Router   /export/workbook [post]
func (h *Handler) ExportWorkbook(c *gin.Context) {
	exporter := h.Exporter
	path := h.WorkbookPath
	taskID, err := h.Queue.Submit("workbook-export", queue.High, func(ctx context.Context) error {
		return exporter.WriteWorkbook(ctx, path)
	})
	if err != nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeExportFailed, "task queue is not accepting work")
		return
	}
	ok(c, http.StatusAccepted, gin.H{"task_id": taskID})
}

// QueueStats exposes the background queue counters.
func (h *Handler) QueueStats(c *gin.Context) {
	ok(c, http.StatusOK, h.Queue.Stats())
}

// GatewayStatus proxies the bridge connection state.
func (h *Handler) GatewayStatus(c *gin.Context) {
	st, err := h.Gateway.Status(c.Request.Context())
	if err != nil {
		fail(c, http.StatusBadGateway, ErrCodeGatewayFailed, "gateway unreachable")
		return
	}
	ok(c, http.StatusOK, st)
}

// GatewayConnect asks the bridge to (re)establish its WhatsApp session.
func (h *Handler) GatewayConnect(c *gin.Context) {
	if err := h.Gateway.Connect(c.Request.Context()); err != nil {
		fail(c, http.StatusBadGateway, ErrCodeGatewayFailed, "gateway unreachable")
		return
	}
	noContent(c)
}

// GatewayDisconnect tears the bridge session down.
func (h *Handler) GatewayDisconnect(c *gin.Context) {
	if err := h.Gateway.Disconnect(c.Request.Context()); err != nil {
		fail(c, http.StatusBadGateway, ErrCodeGatewayFailed, "gateway unreachable")
		return
	}
	noContent(c)
}

// ListBugReports returns diagnostic records, newest first. Supports
// ?status= and ?limit= filters.
func (h *Handler) ListBugReports(c *gin.Context) {
	limit := utils.AtoiDefault(c.Query("limit"), 100)
	rows, err := repo.ListBugReports(c.Request.Context(), h.DB, c.Query("status"), limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list bug reports")
		return
	}
	ok(c, http.StatusOK, rows)
}

// bugStatusRequest is the payload for PUT /bugs/:id/status.
type bugStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateBugStatus moves a bug report through triage.
func (h *Handler) UpdateBugStatus(c *gin.Context) {
	var req bugStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status is required")
		return
	}
	switch req.Status {
	case domain.BugStatusNew, domain.BugStatusInvestigating, domain.BugStatusFixed, domain.BugStatusIgnored:
	default:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown bug status")
		return
	}
	err := repo.UpdateBugReportStatus(c.Request.Context(), h.DB, c.Param("id"), req.Status)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "bug report not found")
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not update bug report")
	default:
		noContent(c)
	}
}
