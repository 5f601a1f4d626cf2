package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/julianstephens/habitboard/internal/models"
	"github.com/julianstephens/habitboard/internal/validation"
	"github.com/julianstephens/habitboard/internal/week"
)

const currentWeek = "current"

type createHabitRequest struct {
	Title             string   `json:"title"`
	Color             string   `json:"color"`
	Days              []string `json:"days"`
	ChecklistTemplate []string `json:"checklistTemplate"`
}

type updateHabitRequest struct {
	Title *string   `json:"title"`
	Color *string   `json:"color"`
	Days  *[]string `json:"days"`
}

type addItemRequest struct {
	Label string `json:"label"`
}

type reorderRequest struct {
	DraggedID string `json:"draggedId" binding:"required"`
	TargetID  string `json:"targetId" binding:"required"`
}

func (s *Server) ListHabits(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"habits": s.board.Habits.Habits()})
}

func (s *Server) CreateHabit(c *gin.Context) {
	var req createHabitRequest
	if !bindJSON(c, &req, "invalid habit") {
		return
	}
	days, err := parseDays(req.Days)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	habit, err := s.board.Habits.AddHabit(c.Request.Context(), models.NewHabit{
		Title:             req.Title,
		Color:             req.Color,
		Days:              days,
		ChecklistTemplate: req.ChecklistTemplate,
	})
	if err != nil {
		respondWriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, habit)
}

func (s *Server) UpdateHabit(c *gin.Context) {
	id := c.Param("id")
	if !s.habitExists(c, id) {
		return
	}
	var req updateHabitRequest
	if !bindJSON(c, &req, "invalid habit update") {
		return
	}

	u := models.HabitUpdate{Title: req.Title, Color: req.Color}
	if req.Days != nil {
		days, err := parseDays(*req.Days)
		if err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		u.Days = &days
	}
	if err := s.board.Habits.UpdateHabit(c.Request.Context(), id, u); err != nil {
		respondWriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) DeleteHabit(c *gin.Context) {
	id := c.Param("id")
	if !s.habitExists(c, id) {
		return
	}
	if err := s.board.Habits.DeleteHabit(c.Request.Context(), id); err != nil {
		respondWriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) AddChecklistItem(c *gin.Context) {
	id := c.Param("id")
	if !s.habitExists(c, id) {
		return
	}
	var req addItemRequest
	if !bindJSON(c, &req, "invalid checklist item") {
		return
	}
	item, err := s.board.Habits.AddChecklistItem(c.Request.Context(), id, req.Label)
	if err != nil {
		respondWriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (s *Server) RemoveChecklistItem(c *gin.Context) {
	id := c.Param("id")
	if !s.habitExists(c, id) {
		return
	}
	if err := s.board.Habits.RemoveChecklistItem(c.Request.Context(), id, c.Param("itemID")); err != nil {
		respondWriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) ReorderHabits(c *gin.Context) {
	var req reorderRequest
	if !bindJSON(c, &req, "draggedId and targetId are required") {
		return
	}
	if err := s.board.Habits.ReorderHabits(c.Request.Context(), req.DraggedID, req.TargetID); err != nil {
		respondWriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) GetWeek(c *gin.Context) {
	weekKey, ok := s.weekParam(c)
	if !ok {
		return
	}
	view, err := s.board.Week(weekKey, s.now())
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) ToggleChecklistItem(c *gin.Context) {
	weekKey, day, ok := s.dayTarget(c)
	if !ok {
		return
	}
	err := s.board.Completions.ToggleChecklistItem(c.Request.Context(), weekKey, c.Param("id"), day, c.Param("itemID"))
	if err != nil {
		respondWriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) ToggleHabitDone(c *gin.Context) {
	weekKey, day, ok := s.dayTarget(c)
	if !ok {
		return
	}
	if err := s.board.Completions.ToggleHabitDone(c.Request.Context(), weekKey, c.Param("id"), day); err != nil {
		respondWriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Stream sends the whole board as a "board" event on connect and after every
// synced change.
func (s *Server) Stream(c *gin.Context) {
	wake, cancel := s.changes.Add(streamKey)
	defer cancel()

	c.SSEvent(streamKey, s.board.Data())
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case _, ok := <-wake:
			if !ok {
				return false
			}
			c.SSEvent(streamKey, s.board.Data())
			return true
		}
	})
}

func (s *Server) habitExists(c *gin.Context, id string) bool {
	if _, ok := s.board.Habits.Habit(id); !ok {
		respondError(c, http.StatusNotFound, "habit not found")
		return false
	}
	return true
}

// weekParam resolves the :week path segment, accepting "current".
func (s *Server) weekParam(c *gin.Context) (string, bool) {
	key := c.Param("week")
	if key == currentWeek {
		return week.Key(s.now()), true
	}
	if _, err := week.ParseKey(key); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return "", false
	}
	return key, true
}

func (s *Server) dayTarget(c *gin.Context) (string, models.DayKey, bool) {
	weekKey, ok := s.weekParam(c)
	if !ok {
		return "", "", false
	}
	day, err := models.ParseDayKey(c.Param("day"))
	if err != nil {
		respondError(c, http.StatusBadRequest, errors.Join(validation.ErrInvalidDay, err).Error())
		return "", "", false
	}
	return weekKey, day, true
}
