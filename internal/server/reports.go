package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"workflow/internal/report"
)

type reportRequest struct {
	Content     string `json:"content"`
	Issues      string `json:"issues"`
	DelayReason string `json:"delay_reason"`
	Percentage  int    `json:"percentage"`
}

func (s *Server) handleListReports(c *gin.Context) {
	reports, err := s.svc.Reports.List(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"reports": reports})
}

// handleSubmitReport appends a progress report and returns the updated task.
func (s *Server) handleSubmitReport(c *gin.Context) {
	var req reportRequest
	if !s.bindJSON(c, &req) {
		return
	}
	rep, t, err := s.svc.Reports.Submit(c.Request.Context(), actor(c), c.Param("id"), report.Submission{
		Content:     req.Content,
		Issues:      req.Issues,
		DelayReason: req.DelayReason,
		Percentage:  req.Percentage,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"report": rep, "task": t})
}

func (s *Server) handleAnalyzeReports(c *gin.Context) {
	analysis, err := s.svc.Reports.Analyze(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"analysis": analysis})
}
