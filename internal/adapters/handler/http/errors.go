package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-programs/internal/core/domain"
	"github.com/comitanigiacomo/kanso-programs/internal/core/services"
)

func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidImport):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid import file", "details": err.Error()})

	case errors.Is(err, domain.ErrProgramNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "program not found"})

	case errors.Is(err, domain.ErrHabitNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "habit not found"})

	default:
		log.Printf("[ERROR] Request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)

		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
