package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"workflow/internal/assistant"
)

type suggestRequest struct {
	Title     string `json:"title" binding:"required"`
	ProjectID string `json:"project_id"`
	// ProjectName is used for a project that does not exist yet.
	ProjectName string `json:"project_name"`
}

// handleSuggest drafts a task description. Provider failures still answer
// 200 with the degraded text.
func (s *Server) handleSuggest(c *gin.Context) {
	var req suggestRequest
	if !s.bindJSON(c, &req) {
		return
	}
	scope := req.ProjectName
	if req.ProjectID != "" {
		p, err := s.svc.Projects.Get(c.Request.Context(), req.ProjectID)
		if err != nil {
			s.respondError(c, err)
			return
		}
		scope = p.Name
	}
	text := s.svc.Assistant.Suggest(c.Request.Context(), assistant.SuggestionPrompt(req.Title, scope))
	respondSuccess(c, http.StatusOK, gin.H{"suggestion": text})
}
