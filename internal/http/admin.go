package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	dbaudit "github.com/mrlokans/bookshelf/internal/database/audit"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/tasks"
)

// AdminController exposes maintenance endpoints: rating reconciliation,
// background task control and the audit log.
type AdminController struct {
	queue  TaskQueue
	events AuditReader
}

func NewAdminController(queue TaskQueue, events AuditReader) *AdminController {
	return &AdminController{queue: queue, events: events}
}

// TaskTypeInfo describes a task type that can be triggered manually.
type TaskTypeInfo struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

var taskTypes = []TaskTypeInfo{
	{Type: "reconcile_ratings", Description: "Recompute the cached rating of every book"},
	{Type: "recompute_rating", Description: "Recompute the cached rating of one book"},
	{Type: "enrich_book", Description: "Fill a book's missing metadata from OpenLibrary"},
	{Type: "enrich_all_books", Description: "Enrich all books missing a page count"},
	{Type: "cleanup_audit_events", Description: "Delete audit events past the retention window"},
}

// RunTaskRequest is the request body for running a task.
type RunTaskRequest struct {
	BookID        uint `json:"book_id,omitempty"`
	RetentionDays int  `json:"retention_days,omitempty"`
}

// ReconcileRatings handles POST /api/admin/ratings/reconcile
func (ac *AdminController) ReconcileRatings(c *gin.Context) {
	ac.enqueue(c, "reconcile_ratings", tasks.ReconcileRatingsTask{})
}

// ListTaskTypes handles GET /api/admin/tasks/types
func (ac *AdminController) ListTaskTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"task_types": taskTypes})
}

// RunTask handles POST /api/admin/tasks/:type/run
func (ac *AdminController) RunTask(c *gin.Context) {
	taskType := c.Param("type")

	var req RunTaskRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondBadRequest(c, "invalid body")
		return
	}

	var task backlite.Task
	switch taskType {
	case "reconcile_ratings":
		task = tasks.ReconcileRatingsTask{}
	case "recompute_rating":
		if req.BookID == 0 {
			respondBadRequest(c, "book_id is required for recompute_rating task")
			return
		}
		task = tasks.RecomputeRatingTask{BookID: req.BookID}
	case "enrich_book":
		if req.BookID == 0 {
			respondBadRequest(c, "book_id is required for enrich_book task")
			return
		}
		task = tasks.EnrichBookTask{BookID: req.BookID}
	case "enrich_all_books":
		task = tasks.EnrichAllBooksTask{}
	case "cleanup_audit_events":
		if req.RetentionDays <= 0 {
			respondBadRequest(c, "retention_days must be positive")
			return
		}
		task = tasks.CleanupAuditEventsTask{RetentionDays: req.RetentionDays}
	default:
		respondBadRequest(c, fmt.Sprintf("unknown task type: %s", taskType))
		return
	}

	ac.enqueue(c, taskType, task)
}

func (ac *AdminController) enqueue(c *gin.Context, taskType string, task backlite.Task) {
	if ac.queue == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "task queue is not running", Code: CodeUnavailable})
		return
	}

	id, err := ac.queue.Enqueue(c.Request.Context(), task)
	if err != nil {
		respondInternalError(c, err, "enqueue task")
		return
	}

	respondAccepted(c, "task enqueued", gin.H{
		"task_id": id,
		"type":    taskType,
	})
}

// GetTaskStatus handles GET /api/admin/tasks/:id
func (ac *AdminController) GetTaskStatus(c *gin.Context) {
	if ac.queue == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "task queue is not running", Code: CodeUnavailable})
		return
	}
	taskID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := ac.queue.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     taskID,
		"status": taskStatusToString(status),
	})
}

func taskStatusToString(status backlite.TaskStatus) string {
	switch status {
	case backlite.TaskStatusPending:
		return "pending"
	case backlite.TaskStatusRunning:
		return "running"
	case backlite.TaskStatusSuccess:
		return "success"
	case backlite.TaskStatusFailure:
		return "failure"
	case backlite.TaskStatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// AuditEvents handles GET /api/admin/audit
// Filters: user_id, type, entity_type, entity_id, status, limit, offset.
func (ac *AdminController) AuditEvents(c *gin.Context) {
	limit, offset := parsePagination(c)
	filter := dbaudit.EventFilter{
		EventType:  entities.AuditEventType(c.Query("type")),
		EntityType: c.Query("entity_type"),
		Status:     entities.AuditStatus(c.Query("status")),
		Limit:      limit,
		Offset:     offset,
	}

	for name, dst := range map[string]*uint{"user_id": &filter.UserID, "entity_id": &filter.EntityID} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondBadRequest(c, name+" must be a positive integer")
			return
		}
		*dst = uint(v)
	}

	events, total, err := ac.events.GetEvents(filter)
	if err != nil {
		respondInternalError(c, err, "load audit events")
		return
	}

	c.JSON(http.StatusOK, newPaginatedResponse(events, total, limit, offset))
}
