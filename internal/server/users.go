package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"workflow/internal/identity"
	"workflow/internal/models"
)

type userRequest struct {
	Username string      `json:"username"`
	Password string      `json:"password"`
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Role     models.Role `json:"role"`
}

func (s *Server) handleListUsers(c *gin.Context) {
	users, err := s.svc.Identity.List(c.Request.Context(), actor(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"users": users})
}

func (s *Server) handleCreateUser(c *gin.Context) {
	var req userRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if req.Role == "" {
		req.Role = models.RoleStaff
	}
	user, err := s.svc.Identity.Create(c.Request.Context(), actor(c), identity.NewUser{
		Username: req.Username,
		Password: req.Password,
		Name:     req.Name,
		Email:    req.Email,
		Role:     req.Role,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"user": user.Public()})
}

// handleDeleteUser removes an account; tasks assigned to it are kept.
func (s *Server) handleDeleteUser(c *gin.Context) {
	if err := s.svc.Identity.Delete(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}
