package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/datawise/explore-assistant/internal/common"
	"github.com/datawise/explore-assistant/internal/thread"
)

type createThreadReq struct {
	UserID     string `json:"user_id"`
	ExploreKey string `json:"explore_key"`
	ModelName  string `json:"model_name"`
	ExploreID  string `json:"explore_id"`
}

func (h *Handler) CreateThread(c *gin.Context) {
	var req createThreadReq
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" || req.ExploreKey == "" {
		common.Detail(c, http.StatusBadRequest, "Missing required parameters")
		return
	}

	t, err := h.Svc.CreateThread(c.Request.Context(), req.UserID, req.ExploreKey, req.ModelName, req.ExploreID)
	if err != nil {
		log.Printf("[CreateThread] failed user_id=%s err=%v", req.UserID, err)
		writeDomainError(c, err)
		return
	}

	common.OK(c, http.StatusCreated, "Thread created successfully", gin.H{
		"thread_id": t.ThreadID,
		"status":    "created",
	})
}

func pageParams(c *gin.Context, defLimit int) (int, int) {
	limit := defLimit
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	offset := 0
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = n
		}
	}
	return limit, offset
}

// ThreadHistory returns the displayable turns of one thread, newest-first.
func (h *Handler) ThreadHistory(c *gin.Context) {
	userID := c.Query("user_id")
	threadID := c.Query("thread_id")
	if userID == "" || threadID == "" {
		common.Detail(c, http.StatusBadRequest, "Missing 'user_id' or 'thread_id'")
		return
	}
	limit, offset := pageParams(c, 50)

	msgs, total, err := h.Svc.ListThreadMessages(c.Request.Context(), threadID, limit, offset)
	if err != nil {
		var se *thread.StorageError
		if errors.As(err, &se) {
			log.Printf("[ThreadHistory] storage failure thread_id=%s err=%v", threadID, err)
			storageFault(c, http.StatusServiceUnavailable, se)
			return
		}
		writeDomainError(c, err)
		return
	}
	if len(msgs) == 0 {
		common.Detail(c, http.StatusNotFound, "Thread history not found")
		return
	}

	common.OK(c, http.StatusOK, "Thread history retrieved successfully", gin.H{
		"messages":    msgs,
		"total_count": total,
	})
}

func (h *Handler) ListThreads(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		common.Detail(c, http.StatusBadRequest, "Missing 'user_id'")
		return
	}
	limit, offset := pageParams(c, 50)

	threads, total, err := h.Svc.ListUserThreads(c.Request.Context(), userID, limit, offset)
	if err != nil {
		log.Printf("[ListThreads] failed user_id=%s err=%v", userID, err)
		writeDomainError(c, err)
		return
	}

	common.OK(c, http.StatusOK, "Threads retrieved successfully", gin.H{
		"threads":     threads,
		"total_count": total,
	})
}

// SearchThreads performs keyword search over the caller's conversations.
func (h *Handler) SearchThreads(c *gin.Context) {
	userID := c.Query("user_id")
	query := c.Query("search_query")
	if userID == "" || query == "" {
		common.Detail(c, http.StatusBadRequest, "Missing required parameters")
		return
	}
	limit, offset := pageParams(c, 10)

	result, err := h.Svc.Search(c.Request.Context(), userID, query, limit, offset)
	if err != nil {
		log.Printf("[SearchThreads] failed user_id=%s err=%v", userID, err)
		writeDomainError(c, err)
		return
	}

	msg := "Search completed successfully"
	if result.Total == 0 {
		msg = "No results found"
	}
	common.OK(c, http.StatusOK, msg, result)
}

type deleteThreadsReq struct {
	UserID    string   `json:"user_id"`
	ThreadIDs []string `json:"thread_ids"`
}

// DeleteThreads batch soft-deletes. Idempotent: already-deleted ids do not
// count toward affected_count.
func (h *Handler) DeleteThreads(c *gin.Context) {
	var req deleteThreadsReq
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" || len(req.ThreadIDs) == 0 {
		common.Detail(c, http.StatusBadRequest, "Missing required parameters")
		return
	}

	affected, err := h.Svc.SoftDeleteThreads(c.Request.Context(), req.UserID, req.ThreadIDs)
	if err != nil {
		log.Printf("[DeleteThreads] failed user_id=%s err=%v", req.UserID, err)
		writeDomainError(c, err)
		return
	}

	common.OK(c, http.StatusOK, "Threads deleted successfully", gin.H{
		"affected_count": affected,
		"thread_ids":     req.ThreadIDs,
	})
}
