package utils

import (
	"github.com/gin-gonic/gin"
)

// JSONResponse sends a structured JSON response
func JSONResponse(c *gin.Context, status int, data any, message string) {
	c.JSON(status, gin.H{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

// JSONError sends a structured error response. code is a stable machine
// readable kind such as "bid_too_low".
func JSONError(c *gin.Context, status int, code string, err error, message string) {
	c.JSON(status, gin.H{
		"status":  status,
		"message": message,
		"error":   err.Error(),
		"code":    code,
	})
}

// AbortWithError writes an error response and stops the handler chain
func AbortWithError(c *gin.Context, status int, code string, err error, message string) {
	JSONError(c, status, code, err, message)
	c.Abort()
}
