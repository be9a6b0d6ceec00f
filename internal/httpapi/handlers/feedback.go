package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/datawise/explore-assistant/internal/common"
)

type feedbackReq struct {
	UserID       string `json:"user_id"`
	MessageID    string `json:"message_id"`
	FeedbackText string `json:"feedback_text"`
	IsPositive   *bool  `json:"is_positive"`
}

func (h *Handler) AddFeedback(c *gin.Context) {
	var req feedbackReq
	if err := c.ShouldBindJSON(&req); err != nil ||
		req.UserID == "" || req.MessageID == "" || req.FeedbackText == "" || req.IsPositive == nil {
		common.Detail(c, http.StatusBadRequest, "Missing required parameters")
		return
	}

	fb, err := h.Svc.AddFeedback(c.Request.Context(), req.UserID, req.MessageID, req.FeedbackText, *req.IsPositive)
	if err != nil {
		log.Printf("[AddFeedback] failed message_id=%s err=%v", req.MessageID, err)
		writeDomainError(c, err)
		return
	}

	common.OK(c, http.StatusOK, "Feedback submitted successfully", fb)
}
