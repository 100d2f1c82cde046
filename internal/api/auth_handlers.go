package api

import (
	"net/http"
	"time"

	"holidayrent/internal/models"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken  string       `json:"access_token"`
	TokenType    string       `json:"token_type"`
	SessionToken string       `json:"session_token"`
	ExpiresAt    time.Time    `json:"expires_at"`
	User         *models.User `json:"user"`
}

func (s *HTTPServer) handleRegister(c *gin.Context) {
	var in models.NewUser
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	user, err := s.deps.Users.Register(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (s *HTTPServer) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := s.deps.Users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loginResponse{
		AccessToken:  res.AccessToken,
		TokenType:    "bearer",
		SessionToken: res.SessionToken,
		ExpiresAt:    res.ExpiresAt,
		User:         res.User,
	})
}

func (s *HTTPServer) handleLogout(c *gin.Context) {
	if err := s.deps.Users.Logout(c.Request.Context(), caller(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}

func (s *HTTPServer) handleGetProfile(c *gin.Context) {
	user, err := s.deps.Users.Profile(c.Request.Context(), caller(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *HTTPServer) handleUpdateProfile(c *gin.Context) {
	var patch models.ProfilePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err.Error())
		return
	}
	user, err := s.deps.Users.UpdateProfile(c.Request.Context(), caller(c), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
