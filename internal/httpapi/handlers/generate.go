package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/datawise/explore-assistant/internal/analytics"
	"github.com/datawise/explore-assistant/internal/common"
)

type generateReq struct {
	Contents   string         `json:"contents"`
	Parameters map[string]any `json:"parameters"`
}

// Generate is the direct generation passthrough: no thread state, just
// prompt in, text out, with the prompt recorded for offline analytics.
func (h *Handler) Generate(c *gin.Context) {
	var req generateReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Contents == "" {
		common.Detail(c, http.StatusBadRequest, "Missing 'contents' parameter")
		return
	}

	ctx := c.Request.Context()
	text, usage, err := h.Gen.Generate(ctx, req.Contents, req.Parameters)
	if err != nil {
		log.Printf("[Generate] failed err=%v", err)
		writeDomainError(c, err)
		return
	}

	record := analytics.NewPromptRecord(req.Contents, marshalParameters(req.Parameters), text,
		usage.InputTokens, usage.OutputTokens)
	if err := h.Recorder.PublishRecords(ctx, []analytics.PromptRecord{record}); err != nil {
		log.Printf("[Generate] prompt record publish failed: %v", err)
	}

	common.OK(c, http.StatusOK, "Generation completed successfully", gin.H{
		"response":      text,
		"input_tokens":  usage.InputTokens,
		"output_tokens": usage.OutputTokens,
	})
}
