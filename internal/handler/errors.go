package handler

import (
	"net/http"

	"ecofood/internal/apperror"
	"ecofood/internal/middleware"
	"ecofood/internal/service"
	"ecofood/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var kindStatus = map[apperror.Kind]int{
	apperror.KindValidation:   http.StatusBadRequest,
	apperror.KindNotFound:     http.StatusNotFound,
	apperror.KindInvalidState: http.StatusConflict,
	apperror.KindConflict:     http.StatusConflict,
	apperror.KindTransient:    http.StatusServiceUnavailable,
	apperror.KindForbidden:    http.StatusForbidden,
}

// writeError maps service errors onto the response envelope. Errors without a
// kind are logged and reported as a generic 500.
func writeError(c *gin.Context, log logrus.FieldLogger, err error) {
	if errors.Is(err, service.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
		return
	}

	if status, ok := kindStatus[apperror.KindOf(err)]; ok {
		msg := apperror.MessageOf(err)
		if msg == "" {
			msg = http.StatusText(status)
		}
		if status == http.StatusServiceUnavailable {
			log.WithError(err).Warn("backend unavailable")
		}
		c.JSON(status, response.Error(status, msg).WithRequestID(requestID(c)))
		return
	}

	_ = c.Error(err)
	log.WithError(err).WithField("path", c.FullPath()).Error("unhandled error")
	c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Internal server error").WithRequestID(requestID(c)))
}

func requestID(c *gin.Context) string {
	return c.Writer.Header().Get(middleware.RequestIDHeader)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, msg))
}

// currentActor reads the actor set by the role guard.
func currentActor(c *gin.Context) (service.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Account not found in context"))
	}
	return actor, ok
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "Invalid id")
		return uuid.Nil, false
	}
	return id, true
}
