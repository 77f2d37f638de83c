package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/millwright/internal/alert"
	"github.com/zulandar/millwright/internal/machine"
	"github.com/zulandar/millwright/internal/models"
	"github.com/zulandar/millwright/internal/overdue"
	"github.com/zulandar/millwright/internal/ticket"
)

const actorKey = "actor"

func registerRoutes(router *gin.Engine, opts StartOpts) {
	api := router.Group("/api")
	api.Use(requireActor())

	h := &handlers{opts: opts}

	api.GET("/tickets", h.listTickets)
	api.POST("/tickets", h.createTicket)
	api.GET("/tickets/:id", h.getTicket)
	api.PATCH("/tickets/:id", h.updateTicket)
	api.DELETE("/tickets/:id", h.deleteTicket)

	api.GET("/overdue", h.listOverdue)

	api.GET("/machines", h.listMachines)
	api.GET("/machines/:id", h.getMachine)

	api.GET("/alerts", h.listAlerts)
	api.POST("/alerts", h.createAlert)
	api.DELETE("/alerts/:id", h.deleteAlert)

	api.GET("/settings", h.getSettings)
	api.PUT("/settings", h.putSettings)
}

// requireActor reads the caller's identity from headers. Authentication is
// done by the proxy in front; these headers carry who was authenticated.
func requireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		idStr := c.GetHeader("X-Actor-ID")
		role := c.GetHeader("X-Actor-Role")
		if idStr == "" || role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing actor headers"})
			return
		}
		id, err := strconv.ParseUint(idStr, 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid actor id"})
			return
		}
		c.Set(actorKey, ticket.Actor{
			UserID: uint(id),
			Role:   role,
			Name:   c.GetHeader("X-Actor-Name"),
		})
		c.Next()
	}
}

type handlers struct {
	opts StartOpts
}

func actorFrom(c *gin.Context) ticket.Actor {
	a, _ := c.Get(actorKey)
	actor, _ := a.(ticket.Actor)
	return actor
}

// fail maps domain errors onto HTTP statuses. Anything unmapped is a 500
// with a generic body; the detail goes to the server log only.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ticket.ErrNotFound), errors.Is(err, machine.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, ticket.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "permission denied"})
	case errors.Is(err, ticket.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("server: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

func (h *handlers) listTickets(c *gin.Context) {
	var f ticket.Filters
	f.Status = c.Query("status")
	f.Priority = c.Query("priority")
	if v := c.Query("machine_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid machine_id"})
			return
		}
		f.MachineID = uint(id)
	}
	if v := c.Query("reported_by"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reported_by"})
			return
		}
		f.ReportedBy = uint(id)
	}
	f.IncludeDeleted = c.Query("include_deleted") == "true"

	tickets, err := h.opts.Tickets.List(f)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

type createTicketRequest struct {
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Priority      string          `json:"priority"`
	MachineID     uint            `json:"machine_id"`
	AssignedTo    models.Assignee `json:"assigned_to"`
	ScheduledDate *time.Time      `json:"scheduled_date"`
	IsMachineDown bool            `json:"is_machine_down"`
}

func (h *handlers) createTicket(c *gin.Context) {
	var req createTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	t, err := h.opts.Tickets.Create(actorFrom(c), ticket.CreateOpts{
		Title:         req.Title,
		Description:   req.Description,
		Priority:      req.Priority,
		MachineID:     req.MachineID,
		Assignee:      req.AssignedTo,
		ScheduledAt:   req.ScheduledDate,
		IsMachineDown: req.IsMachineDown,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ticket": t})
}

func (h *handlers) getTicket(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var t *models.Ticket
	var err error
	if c.Query("include_deleted") == "true" {
		t, err = h.opts.Tickets.GetAny(id)
	} else {
		t, err = h.opts.Tickets.Get(id)
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": t})
}

// updateTicketRequest uses RawMessage for scheduled_date so a client can
// distinguish "leave alone" (field absent) from "clear" (explicit null).
type updateTicketRequest struct {
	Title         *string          `json:"title"`
	Description   *string          `json:"description"`
	Status        *string          `json:"status"`
	Priority      *string          `json:"priority"`
	AssignedTo    *models.Assignee `json:"assigned_to"`
	ScheduledDate json.RawMessage  `json:"scheduled_date"`
	IsMachineDown *bool            `json:"is_machine_down"`
	Note          string           `json:"note"`
}

func (h *handlers) updateTicket(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req updateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ch := ticket.Changes{
		Title:          req.Title,
		Description:    req.Description,
		Status:         req.Status,
		Priority:       req.Priority,
		Assignee:       req.AssignedTo,
		SetMachineDown: req.IsMachineDown,
		Note:           req.Note,
	}
	if len(req.ScheduledDate) > 0 {
		ch.SetScheduledAt = true
		if string(req.ScheduledDate) != "null" {
			var ts time.Time
			if err := json.Unmarshal(req.ScheduledDate, &ts); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scheduled_date"})
				return
			}
			ch.ScheduledAt = &ts
		}
	}

	t, err := h.opts.Tickets.Update(id, actorFrom(c), ch)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": t})
}

func (h *handlers) deleteTicket(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.opts.Tickets.SoftDelete(id, actorFrom(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (h *handlers) listOverdue(c *gin.Context) {
	views, err := overdue.List(h.opts.DB, h.opts.Settings, time.Now())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"overdue": views})
}

func (h *handlers) listMachines(c *gin.Context) {
	machines, err := machine.List(h.opts.DB)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"machines": machines})
}

func (h *handlers) getMachine(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	m, err := machine.Get(h.opts.DB, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"machine": m})
}

func (h *handlers) listAlerts(c *gin.Context) {
	alerts, err := alert.ListActive(h.opts.DB, time.Now())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

type createAlertRequest struct {
	Title          string     `json:"title"`
	Message        string     `json:"message"`
	Priority       string     `json:"priority"`
	DisplaySeconds int        `json:"display_seconds"`
	MachineID      *uint      `json:"machine_id"`
	ExpiresAt      *time.Time `json:"expires_at"`
}

func (h *handlers) createAlert(c *gin.Context) {
	var req createAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	a, err := alert.Create(h.opts.DB, alert.CreateOpts{
		Title:          req.Title,
		Message:        req.Message,
		Priority:       req.Priority,
		DisplaySeconds: req.DisplaySeconds,
		MachineID:      req.MachineID,
		ExpiresAt:      req.ExpiresAt,
		CreatedBy:      actorFrom(c).UserID,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"alert": a})
}

func (h *handlers) deleteAlert(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := alert.Delete(h.opts.DB, id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (h *handlers) getSettings(c *gin.Context) {
	st := h.opts.Settings
	c.JSON(http.StatusOK, gin.H{
		"ticket_closed_statuses": st.ClosedStatuses(),
		"timezone_offset":        st.TimezoneOffset(),
		"webhook_url":            st.WebhookURL(),
	})
}

func (h *handlers) putSettings(c *gin.Context) {
	actor := actorFrom(c)
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleSupervisor {
		c.JSON(http.StatusForbidden, gin.H{"error": "permission denied"})
		return
	}

	var req map[string]string
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	for key, value := range req {
		switch key {
		case "ticket_closed_statuses", "timezone_offset", "webhook_url":
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown setting " + key})
			return
		}
		if err := h.opts.Settings.Set(key, value); err != nil {
			fail(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"updated": len(req)})
}
