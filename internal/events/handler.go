package events

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"eventhub/internal/store"
	"eventhub/pkg/models"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes mounts the API under rg (normally /api).
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/events", h.list)                        // GET /api/events
	rg.GET("/events/:id", h.getByID)                 // GET /api/events/:id
	rg.POST("/events/:id/toggle-save", h.toggleSave) // POST /api/events/:id/toggle-save
	rg.POST("/scrape", h.scrape)                     // POST /api/scrape
}

func (h *Handler) list(c *gin.Context) {
	q := ListQuery{
		Q:        c.Query("q"),
		Category: c.Query("category"),
		Limit:    parseInt(c.Query("limit"), 0),
		Offset:   parseInt(c.Query("offset"), 0),
	}
	if s := strings.TrimSpace(c.Query("saved")); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "saved must be true or false"})
			return
		}
		q.Saved = &b
	}

	items, err := h.Svc.List(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error reading events"})
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) getByID(c *gin.Context) {
	ev, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error reading events"})
		return
	}
	c.JSON(http.StatusOK, ev)
}

func (h *Handler) scrape(c *gin.Context) {
	res, err := h.Svc.Refresh(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Scrape failed"})
		return
	}
	added := res.Added
	if added == nil {
		added = []models.Event{}
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Scrape successful",
		"data":     res.Events,
		"added":    added,
		"fallback": res.Fallback,
		"run_id":   res.RunID,
	})
}

func (h *Handler) toggleSave(c *gin.Context) {
	ev, err := h.Svc.ToggleSaved(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error saving event"})
		return
	}
	c.JSON(http.StatusOK, ev)
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}
