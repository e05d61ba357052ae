package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Aidin1998/foodhub/common/apiutil"
	"github.com/Aidin1998/foodhub/internal/identity"
)

type otpRequest struct {
	Phone string `json:"phone" binding:"required,e164"`
}

type otpVerifyRequest struct {
	Phone string `json:"phone" binding:"required,e164"`
	Code  string `json:"code" binding:"required,len=6,numeric"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Role      string    `json:"role"`
}

func (s *Server) requestOTP(c *gin.Context) {
	var req otpRequest
	if err := apiutil.BindJSON(c, &req); err != nil {
		apiutil.Error(c, err)
		return
	}
	if err := s.deps.OTP.Issue(c.Request.Context(), req.Phone); err != nil {
		apiutil.Error(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "sent"})
}

func (s *Server) verifyOTP(c *gin.Context) {
	var req otpVerifyRequest
	if err := apiutil.BindJSON(c, &req); err != nil {
		apiutil.Error(c, err)
		return
	}
	if err := s.deps.OTP.Verify(c.Request.Context(), req.Phone, req.Code); err != nil {
		apiutil.Error(c, err)
		return
	}
	s.issueToken(c, identity.Identity{Subject: req.Phone, Role: identity.RoleCustomer, Phone: req.Phone})
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := apiutil.BindJSON(c, &req); err != nil {
		apiutil.Error(c, err)
		return
	}
	id, err := s.deps.Operators.Login(req.Username, req.Password)
	if err != nil {
		apiutil.Error(c, err)
		return
	}
	s.issueToken(c, *id)
}

func (s *Server) issueToken(c *gin.Context, id identity.Identity) {
	token, expires, err := s.deps.Tokens.Issue(id)
	if err != nil {
		apiutil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse{Token: token, ExpiresAt: expires, Role: string(id.Role)})
}

// serveWS streams order events to the authenticated caller.
func (s *Server) serveWS(c *gin.Context) {
	s.deps.Hub.ServeWS(c.Writer, c.Request, callerOf(c))
}
