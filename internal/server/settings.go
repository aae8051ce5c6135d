package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"workflow/internal/models"
)

func (s *Server) handleGetEmailSettings(c *gin.Context) {
	cfg, err := s.svc.Mailer.Settings(c.Request.Context(), actor(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"email": cfg})
}

func (s *Server) handleSaveEmailSettings(c *gin.Context) {
	var req models.EmailConfig
	if !s.bindJSON(c, &req) {
		return
	}
	cfg, err := s.svc.Mailer.SaveSettings(c.Request.Context(), actor(c), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"email": cfg})
}
