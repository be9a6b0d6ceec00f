package common

import (
	"github.com/gin-gonic/gin"
)

// OK writes the standard success envelope: {"message": ..., "data": ...}.
func OK(c *gin.Context, status int, message string, data any) {
	c.JSON(status, gin.H{
		"message": message,
		"data":    data,
	})
}

// Detail writes the standard error envelope: {"detail": ...}.
// detail is either a plain string or a structured object carrying
// "error" and "details" for storage/generation faults.
func Detail(c *gin.Context, status int, detail any) {
	c.JSON(status, gin.H{
		"detail": detail,
	})
}

// ErrorDetail builds the structured fault payload used for storage and
// generation failures.
func ErrorDetail(tag, details string) gin.H {
	return gin.H{
		"error":   tag,
		"details": details,
	}
}
