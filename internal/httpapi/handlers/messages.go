package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/datawise/explore-assistant/internal/analytics"
	"github.com/datawise/explore-assistant/internal/common"
	"github.com/datawise/explore-assistant/internal/thread"
)

type messageReq struct {
	MessageID string `json:"message_id"`
	ThreadID  string `json:"thread_id"`
	UserID    string `json:"user_id"`

	// Used when the first message of a conversation creates its thread.
	ExploreKey string `json:"explore_key"`

	Actor            string         `json:"actor"`
	Type             string         `json:"type"`
	Message          string         `json:"message"`
	Contents         string         `json:"contents"`
	PromptType       string         `json:"prompt_type"`
	RawPrompt        string         `json:"raw_prompt"`
	SummarizedPrompt string         `json:"summarized_prompt"`
	Parameters       map[string]any `json:"parameters"`
}

func marshalParameters(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	b, err := json.Marshal(params)
	if err != nil {
		return ""
	}
	return string(b)
}

// renderTypeFor derives the client-facing rendering type from the prompt
// kind when the caller did not pin one explicitly.
func renderTypeFor(explicit, promptType string) string {
	if explicit != "" {
		return explicit
	}
	switch promptType {
	case thread.PromptLooker:
		return thread.TypeExploreURL
	case thread.PromptSummarize:
		return thread.TypeSummary
	default:
		return thread.TypeText
	}
}

func truncateTitle(s string) string {
	const max = 80
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// SendMessage implements the two-phase message protocol. Without a
// message_id it allocates a pending row and returns the new id; with one it
// runs generation and fills the row in. The same id never produces two rows,
// so client retries are safe.
func (h *Handler) SendMessage(c *gin.Context) {
	var req messageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Detail(c, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	if req.MessageID == "" {
		h.allocateMessage(c, req)
		return
	}
	h.finalizeMessage(c, req)
}

func (h *Handler) allocateMessage(c *gin.Context, req messageReq) {
	if req.UserID == "" || req.Actor == "" || req.Contents == "" || req.PromptType == "" {
		common.Detail(c, http.StatusBadRequest, "Missing required parameters")
		return
	}

	threadID := req.ThreadID
	if threadID == "" {
		if req.ExploreKey == "" {
			common.Detail(c, http.StatusBadRequest, "Missing 'thread_id' or 'explore_key'")
			return
		}
		t, err := h.Svc.CreateThread(c.Request.Context(), req.UserID, req.ExploreKey, "", "")
		if err != nil {
			log.Printf("[SendMessage] implicit thread create failed user_id=%s err=%v", req.UserID, err)
			writeDomainError(c, err)
			return
		}
		threadID = t.ThreadID
	}

	messageID, err := h.Svc.AllocateMessage(c.Request.Context(), thread.AllocateParams{
		ThreadID:   threadID,
		UserID:     req.UserID,
		Actor:      req.Actor,
		Contents:   req.Contents,
		PromptType: req.PromptType,
		RawPrompt:  req.RawPrompt,
		Parameters: marshalParameters(req.Parameters),
		Message:    req.Message,
	})
	if err != nil {
		log.Printf("[SendMessage] allocate failed thread_id=%s err=%v", threadID, err)
		writeDomainError(c, err)
		return
	}

	common.OK(c, http.StatusOK, "Message allocated successfully", gin.H{
		"message_id": messageID,
		"thread_id":  threadID,
	})
}

func (h *Handler) finalizeMessage(c *gin.Context, req messageReq) {
	ctx := c.Request.Context()

	m, err := h.Svc.GetMessage(ctx, req.MessageID)
	if err != nil {
		log.Printf("[SendMessage] finalize load failed message_id=%s err=%v", req.MessageID, err)
		writeDomainError(c, err)
		return
	}

	contents := req.Contents
	if contents == "" {
		contents = m.Contents
	}
	if contents == "" {
		common.Detail(c, http.StatusBadRequest, "Missing 'contents' parameter")
		return
	}

	text, usage, err := h.Gen.Generate(ctx, contents, req.Parameters)
	if err != nil {
		log.Printf("[SendMessage] generation failed message_id=%s err=%v", req.MessageID, err)
		writeDomainError(c, err)
		return
	}

	promptType := req.PromptType
	if promptType == "" {
		promptType = m.PromptType
	}
	renderType := renderTypeFor(req.Type, promptType)

	fin := thread.FinalizeParams{
		Type:        renderType,
		Message:     m.Message,
		LLMResponse: text,
	}
	switch renderType {
	case thread.TypeExploreURL:
		fin.ExploreURL = text
	case thread.TypeSummary:
		fin.Summary = text
	case thread.TypeNone:
		// internal scratch step, nothing to display
	default:
		if fin.Message == "" {
			fin.Message = text
		}
	}

	updated, err := h.Svc.FinalizeMessage(ctx, req.MessageID, fin)
	if err != nil {
		log.Printf("[SendMessage] finalize failed message_id=%s err=%v", req.MessageID, err)
		writeDomainError(c, err)
		return
	}

	if updated.Actor == thread.ActorUser && renderType != thread.TypeNone {
		title := req.SummarizedPrompt
		if title == "" {
			title = truncateTitle(updated.Message)
		}
		rawPrompt := req.Message
		if rawPrompt == "" {
			rawPrompt = updated.Message
		}
		if err := h.Svc.RecordTurn(ctx, updated.ThreadID, title, rawPrompt, fin.ExploreURL); err != nil {
			log.Printf("[SendMessage] thread rollup failed thread_id=%s err=%v", updated.ThreadID, err)
			writeDomainError(c, err)
			return
		}
	}

	record := analytics.NewPromptRecord(contents, marshalParameters(req.Parameters), text,
		usage.InputTokens, usage.OutputTokens)
	if err := h.Recorder.PublishRecords(ctx, []analytics.PromptRecord{record}); err != nil {
		log.Printf("[SendMessage] prompt record publish failed: %v", err)
	}

	common.OK(c, http.StatusOK, "Prompt handled successfully", gin.H{
		"response":  text,
		"thread_id": updated.ThreadID,
	})
}

// UpdateMessage applies a caller-supplied field map to one message. Unknown
// fields are rejected rather than dropped.
func (h *Handler) UpdateMessage(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		common.Detail(c, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	messageID, _ := body["message_id"].(string)
	if messageID == "" {
		common.Detail(c, http.StatusBadRequest, "Missing 'message_id'")
		return
	}
	delete(body, "message_id")
	delete(body, "user_id")
	delete(body, "thread_id")

	if params, ok := body["parameters"].(map[string]any); ok {
		body["parameters"] = marshalParameters(params)
	}

	updated, err := h.Svc.UpdateMessage(c.Request.Context(), messageID, body)
	if err != nil {
		log.Printf("[UpdateMessage] failed message_id=%s err=%v", messageID, err)
		writeDomainError(c, err)
		return
	}

	common.OK(c, http.StatusOK, "Message updated successfully", updated)
}
