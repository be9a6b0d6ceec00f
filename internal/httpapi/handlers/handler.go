package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/datawise/explore-assistant/internal/analytics"
	"github.com/datawise/explore-assistant/internal/common"
	"github.com/datawise/explore-assistant/internal/genai"
	"github.com/datawise/explore-assistant/internal/thread"
)

// DirectoryVerifier is the slice of the auth gate the login handler needs.
type DirectoryVerifier interface {
	VerifyDirectoryUser(ctx context.Context, userID string) bool
}

// Generator is the generation-dispatcher contract.
type Generator interface {
	Generate(ctx context.Context, contents string, overrides map[string]any) (string, genai.Usage, error)
}

type Handler struct {
	Svc       *thread.Service
	Directory DirectoryVerifier
	Gen       Generator
	Recorder  analytics.Recorder
}

func NewHandler(svc *thread.Service, directory DirectoryVerifier, gen Generator, recorder analytics.Recorder) *Handler {
	if recorder == nil {
		recorder = analytics.NopRecorder{}
	}
	return &Handler{Svc: svc, Directory: directory, Gen: gen, Recorder: recorder}
}

func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// storageFault writes the structured server-fault envelope for a
// persistence failure.
func storageFault(c *gin.Context, status int, se *thread.StorageError) {
	common.Detail(c, status, common.ErrorDetail(se.Message, se.Details))
}

// writeDomainError maps the error taxonomy onto transport statuses. Handlers
// that need endpoint-specific mappings (404s, 503s) check those before
// falling through to this.
func writeDomainError(c *gin.Context, err error) {
	var (
		se *thread.StorageError
		ge *genai.GenerationError
		ue *thread.UnknownFieldError
	)
	switch {
	case errors.As(err, &ue):
		common.Detail(c, http.StatusBadRequest, ue.Error())
	case errors.Is(err, thread.ErrAlreadyFinalized):
		common.Detail(c, http.StatusConflict, "Message already finalized")
	case errors.Is(err, thread.ErrNotFound):
		common.Detail(c, http.StatusNotFound, "Record not found")
	case errors.As(err, &se):
		storageFault(c, http.StatusInternalServerError, se)
	case errors.Is(err, genai.ErrTimeout):
		common.Detail(c, http.StatusGatewayTimeout, "Request timed out. Please try again.")
	case errors.As(err, &ge):
		common.Detail(c, http.StatusInternalServerError, common.ErrorDetail("generation failed", ge.Message))
	default:
		log.Printf("[Handler] unclassified error: %v", err)
		common.Detail(c, http.StatusInternalServerError, "Internal server error")
	}
}
