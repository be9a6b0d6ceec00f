package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/datawise/explore-assistant/internal/common"
)

type loginReq struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// Login records the user on first sight. Identity is externally issued; the
// directory check rejects ids the BI instance does not know about.
func (h *Handler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" || req.Name == "" || req.Email == "" {
		common.Detail(c, http.StatusBadRequest, "Missing required parameters")
		return
	}

	if !h.Directory.VerifyDirectoryUser(c.Request.Context(), req.UserID) {
		common.Detail(c, http.StatusForbidden, "User is not a validated directory user")
		return
	}

	user, created, err := h.Svc.GetOrCreateUser(c.Request.Context(), req.UserID, req.Name, req.Email)
	if err != nil {
		log.Printf("[Login] get-or-create failed user_id=%s err=%v", req.UserID, err)
		writeDomainError(c, err)
		return
	}

	if created {
		common.OK(c, http.StatusOK, "User created successfully", user)
		return
	}
	common.OK(c, http.StatusOK, "User already exists", user)
}
