package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Aidin1998/foodhub/common/apiutil"
	"github.com/Aidin1998/foodhub/internal/settings"
)

type settingRequest struct {
	Value *string `json:"value" binding:"required"`
}

func (s *Server) listSettings(c *gin.Context) {
	list, err := s.deps.Settings.List(c.Request.Context())
	if err != nil {
		apiutil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": list})
}

func (s *Server) updateSetting(c *gin.Context) {
	key := c.Param("key")
	var req settingRequest
	if err := apiutil.BindJSON(c, &req); err != nil {
		apiutil.Error(c, err)
		return
	}
	value, err := settings.Normalize(key, *req.Value)
	if err != nil {
		apiutil.Error(c, err)
		return
	}
	setting, err := s.deps.Settings.Set(c.Request.Context(), key, value)
	if err != nil {
		apiutil.Error(c, err)
		return
	}
	s.logger.Info("Setting updated",
		zap.String("key", key),
		zap.String("value", value),
		zap.String("actor", callerOf(c).Subject))
	c.JSON(http.StatusOK, setting)
}
