package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"workflow/internal/stats"
)

func (s *Server) handleDashboard(c *gin.Context) {
	rows, err := s.svc.Stats.Dashboard(c.Request.Context(), actor(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"stats": rows})
}

func (s *Server) handleTeam(c *gin.Context) {
	rows, err := s.svc.Stats.Team(c.Request.Context(), actor(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"stats": rows})
}

// handleTeamCSV streams the team report as a spreadsheet download.
func (s *Server) handleTeamCSV(c *gin.Context) {
	rows, err := s.svc.Stats.Team(c.Request.Context(), actor(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "team-report.csv"))
	c.Status(http.StatusOK)
	if err := stats.WriteCSV(c.Writer, rows); err != nil {
		s.logger.Error("write team csv", slog.String("error", err.Error()))
	}
}
