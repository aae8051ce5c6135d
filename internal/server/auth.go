package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"workflow/internal/apperror"
	"workflow/internal/models"
	"workflow/internal/policy"
)

const actorKey = "workflow.actor"

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// authenticate resolves the bearer token to the stored account. The account
// is reloaded on every request so role and first-login changes apply at once.
func (s *Server) authenticate(c *gin.Context) {
	raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || raw == "" {
		s.respondError(c, apperror.ErrCredential)
		return
	}
	userID, err := s.svc.Tokens.Parse(raw)
	if err != nil {
		s.respondError(c, apperror.ErrCredential)
		return
	}
	user, err := s.svc.Identity.Get(c.Request.Context(), userID)
	if err != nil {
		s.respondError(c, apperror.ErrCredential)
		return
	}
	c.Set(actorKey, user.Public())
	c.Next()
}

// requireActive blocks accounts that still have to change their password.
func (s *Server) requireActive(c *gin.Context) {
	if err := policy.RequireActive(actor(c)); err != nil {
		s.respondError(c, err)
		return
	}
	c.Next()
}

func (s *Server) requireAdmin(c *gin.Context) {
	if err := policy.AuthorizeAdmin(actor(c)); err != nil {
		s.respondError(c, err)
		return
	}
	c.Next()
}

// actor returns the authenticated user, or the zero user when none is set.
func actor(c *gin.Context) models.User {
	if v, ok := c.Get(actorKey); ok {
		if u, ok := v.(models.User); ok {
			return u
		}
	}
	return models.User{}
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if !s.bindJSON(c, &req) {
		return
	}
	user, err := s.svc.Identity.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}
	token, err := s.svc.Tokens.Issue(user)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"token": token, "user": user.Public()})
}

func (s *Server) handleChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if !s.bindJSON(c, &req) {
		return
	}
	user, err := s.svc.Identity.ChangePassword(c.Request.Context(), actor(c), req.OldPassword, req.NewPassword)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"user": user.Public()})
}

func (s *Server) handleMe(c *gin.Context) {
	respondSuccess(c, http.StatusOK, gin.H{"user": actor(c)})
}
