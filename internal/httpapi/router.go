package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/datawise/explore-assistant/internal/common"
	"github.com/datawise/explore-assistant/internal/httpapi/handlers"
	"github.com/datawise/explore-assistant/internal/httpapi/middleware"
)

// NewRouter wires the HTTP surface. validate is the auth gate's credential
// check; every route except the health check sits behind it.
func NewRouter(h *handlers.Handler, validate func(c *gin.Context, token string) bool) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())

	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:    []string{"Authorization", "Content-Type"},
		MaxAge:          time.Hour,
	}))

	r.NoRoute(func(c *gin.Context) {
		common.Detail(c, http.StatusNotFound, "Route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Detail(c, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.GET("/ping", h.Ping)

	authed := r.Group("/")
	authed.Use(middleware.BearerAuth(validate))

	authed.POST("/", h.Generate)
	authed.POST("/login", h.Login)

	authed.POST("/thread", h.CreateThread)
	authed.GET("/threads", h.ListThreads)
	authed.GET("/thread/history", h.ThreadHistory)
	authed.GET("/thread/search", h.SearchThreads)
	authed.POST("/thread/delete", h.DeleteThreads)

	authed.POST("/message", h.SendMessage)
	authed.PUT("/message/update", h.UpdateMessage)

	authed.POST("/feedback", h.AddFeedback)

	return r
}
