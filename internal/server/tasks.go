package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"workflow/internal/models"
	"workflow/internal/task"
)

type newProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type createTaskRequest struct {
	ProjectID       string             `json:"project_id"`
	NewProject      *newProjectRequest `json:"new_project"`
	Title           string             `json:"title"`
	Description     string             `json:"description"`
	StartDate       time.Time          `json:"start_date"`
	Deadline        time.Time          `json:"deadline"`
	AssignedToID    string             `json:"assigned_to_id"`
	CollaboratorIDs []string           `json:"collaborator_ids"`
	Priority        models.Priority    `json:"priority"`
	Notes           string             `json:"notes"`
}

type statusRequest struct {
	Status models.TaskStatus `json:"status" binding:"required"`
}

// handleListTasks returns the tasks visible to the caller.
func (s *Server) handleListTasks(c *gin.Context) {
	tasks, err := s.svc.Tasks.List(c.Request.Context(), actor(c), task.Filter{
		Status:    models.TaskStatus(c.Query("status")),
		Query:     c.Query("q"),
		ProjectID: c.Query("project_id"),
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": tasks})
}

// handleCreateTask stores a new task, creating its project first when the
// request names a new one.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if !s.bindJSON(c, &req) {
		return
	}
	draft := task.Draft{
		ProjectID:       req.ProjectID,
		Title:           req.Title,
		Description:     req.Description,
		StartDate:       req.StartDate,
		Deadline:        req.Deadline,
		AssignedToID:    req.AssignedToID,
		CollaboratorIDs: req.CollaboratorIDs,
		Priority:        req.Priority,
		Notes:           req.Notes,
	}

	ctx := c.Request.Context()
	if req.NewProject != nil {
		project, created, err := s.svc.Tasks.CreateWithProject(ctx, actor(c), task.NewProject{
			Name:        req.NewProject.Name,
			Description: req.NewProject.Description,
		}, draft)
		if err != nil {
			s.respondError(c, err)
			return
		}
		respondSuccess(c, http.StatusCreated, gin.H{"task": created, "project": project})
		return
	}

	created, err := s.svc.Tasks.Create(ctx, actor(c), draft)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"task": created})
}

func (s *Server) handleGetTask(c *gin.Context) {
	t, err := s.svc.Tasks.Get(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": t})
}

// handleUpdateTask replaces a task. The body must carry the version last read.
func (s *Server) handleUpdateTask(c *gin.Context) {
	var req models.Task
	if !s.bindJSON(c, &req) {
		return
	}
	req.ID = c.Param("id")

	t, err := s.svc.Tasks.Update(c.Request.Context(), actor(c), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": t})
}

func (s *Server) handleSetStatus(c *gin.Context) {
	var req statusRequest
	if !s.bindJSON(c, &req) {
		return
	}
	t, err := s.svc.Tasks.SetStatus(c.Request.Context(), actor(c), c.Param("id"), req.Status)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": t})
}
