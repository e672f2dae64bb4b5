package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zlin640/finpost/backend/internal/journal/domain"
	"github.com/zlin640/finpost/backend/internal/journal/service"
)

// JournalHandler exposes the posting engine over HTTP. Payload shape and
// the source-table allow-list are validated here, one layer above the
// engine; the engine trusts what it is handed.
type JournalHandler struct {
	svc           *service.PostingService
	allowedTables map[string]bool
}

func NewJournalHandler(svc *service.PostingService, allowedTables []string) *JournalHandler {
	allowed := make(map[string]bool, len(allowedTables))
	for _, t := range allowedTables {
		allowed[t] = true
	}
	return &JournalHandler{svc: svc, allowedTables: allowed}
}

func (h *JournalHandler) RegisterRoutes(r *gin.RouterGroup) {
	journalGroup := r.Group("/journal")
	{
		journalGroup.POST("/post", h.Post)
		journalGroup.POST("/preview", h.Preview)
	}
}

// Post posts a single source transaction.
// POST /api/v1/journal/post
func (h *JournalHandler) Post(c *gin.Context) {
	var req PostJournalReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "Invalid request: " + err.Error()})
		return
	}
	if !h.allowedTables[req.SourceTable] {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "source table not allowed: " + req.SourceTable})
		return
	}

	journalID, err := h.svc.PostSingleTransaction(c.Request.Context(), req.SourceTable, req.SourceID, req.ForceRepost)
	if err != nil {
		// Business errors still surface as server errors: they mean the
		// posting configuration needs operator attention, not that the
		// request was malformed.
		c.JSON(http.StatusInternalServerError, gin.H{
			"ok":      false,
			"kind":    domain.KindOf(err),
			"message": err.Error(),
		})
		return
	}

	if journalID == nil {
		c.JSON(http.StatusOK, gin.H{
			"ok":         true,
			"journal_id": nil,
			"message":    "Skipped non-financial transaction",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "journal_id": *journalID})
}

// Preview assembles a journal without posting it.
// POST /api/v1/journal/preview
func (h *JournalHandler) Preview(c *gin.Context) {
	var req PreviewJournalReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "Invalid request: " + err.Error()})
		return
	}
	if !h.allowedTables[req.SourceTable] {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "source table not allowed: " + req.SourceTable})
		return
	}

	result, err := h.svc.PreviewSingleTransaction(c.Request.Context(), req.SourceTable, req.SourceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"ok":      false,
			"kind":    domain.KindOf(err),
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":            true,
		"trans_type":    result.TransType,
		"flag_set":      result.FlagSetCode,
		"flags":         result.Flags,
		"non_financial": result.NonFinancial,
		"rule":          result.Rule,
		"lines":         result.Lines,
		"total_debit":   result.TotalDebit,
		"total_credit":  result.TotalCredit,
		"fields":        result.Fields,
		"status":        result.Status,
	})
}
