package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"drive-rag-chatbot/internal/ai"
	"drive-rag-chatbot/internal/logger"
	"drive-rag-chatbot/internal/rag"
	"drive-rag-chatbot/models"
	"drive-rag-chatbot/services"
)

// SetupChatRoutes mounts the chat API.
func SetupChatRoutes(router *gin.Engine, chat *services.ChatService) {
	group := router.Group("/chat")

	group.POST("/session", func(c *gin.Context) {
		s := chat.StartSession()
		c.JSON(http.StatusCreated, s)
	})

	group.GET("/session/:id", func(c *gin.Context) {
		s := chat.SessionInfo(c.Param("id"))
		if s == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error_code": "session_not_found",
				"message":    "Session expired or not found",
			})
			return
		}
		c.JSON(http.StatusOK, s)
	})

	group.DELETE("/session/:id", func(c *gin.Context) {
		chat.EndSession(c.Param("id"))
		c.JSON(http.StatusOK, gin.H{"message": "Session cleared"})
	})

	group.POST("/send", func(c *gin.Context) {
		var req models.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error_code": "invalid_input",
				"message":    "Invalid request data",
				"details":    gin.H{"error": err.Error()},
			})
			return
		}

		answer, err := chat.HandleMessage(c.Request.Context(), req.SessionID, req.Message)
		if err != nil {
			handleChatError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.ChatResponse{
			SessionID: req.SessionID,
			Answer:    answer,
		})
	})

	group.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"active_sessions": chat.ActiveSessions(),
			"corpus":          chat.Stats(c.Request.Context()),
		})
	})
}

func handleChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrSessionExpired):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error_code": "session_expired",
			"message":    "Session expired or not found. Start a new session.",
		})
	case errors.Is(err, rag.ErrNoDocuments):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error_code": "no_documents",
			"message":    "No documents are loaded yet. Run the ingestion pipeline first.",
		})
	case errors.Is(err, ai.ErrQuotaExhausted):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error_code": "quota_exhausted",
			"message":    "AI quota exhausted. Please try again later.",
		})
	case errors.Is(err, ai.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error_code": "ai_unavailable",
			"message":    "AI service is temporarily unavailable. Please try again.",
		})
	default:
		logger.Error("chat request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error_code": "internal_error",
			"message":    "Failed to generate a response",
		})
	}
}
