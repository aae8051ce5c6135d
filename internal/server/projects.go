package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type projectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// handleListProjects returns all available projects.
func (s *Server) handleListProjects(c *gin.Context) {
	projects, err := s.svc.Projects.List(c.Request.Context(), actor(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"projects": projects})
}

// handleCreateProject creates a new project entity.
func (s *Server) handleCreateProject(c *gin.Context) {
	var req projectRequest
	if !s.bindJSON(c, &req) {
		return
	}

	project, err := s.svc.Projects.Create(c.Request.Context(), actor(c), req.Name, req.Description)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"project": project})
}
