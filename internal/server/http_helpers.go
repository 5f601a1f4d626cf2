package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/julianstephens/habitboard/internal/models"
	"github.com/julianstephens/habitboard/internal/storage"
	"github.com/julianstephens/habitboard/internal/validation"
	"github.com/julianstephens/habitboard/internal/week"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

// respondWriteError maps a store error to a status code.
func respondWriteError(c *gin.Context, err error) {
	switch {
	case isInvalidInput(err):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrVersionConflict):
		respondError(c, http.StatusConflict, err.Error())
	default:
		c.Error(err)
		respondError(c, http.StatusBadGateway, "failed to save changes")
	}
}

func isInvalidInput(err error) bool {
	for _, target := range []error{
		validation.ErrEmptyTitle,
		validation.ErrInvalidColor,
		validation.ErrInvalidDay,
		validation.ErrEmptyLabel,
		week.ErrInvalidKey,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// parseDays converts request day names into day keys.
func parseDays(raw []string) ([]models.DayKey, error) {
	if raw == nil {
		return nil, nil
	}
	days := make([]models.DayKey, 0, len(raw))
	for _, s := range raw {
		day, err := models.ParseDayKey(s)
		if err != nil {
			return nil, errors.Join(validation.ErrInvalidDay, err)
		}
		days = append(days, day)
	}
	return days, nil
}
