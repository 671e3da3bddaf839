package api

import (
	"context"
	"net/http"
	"strings"

	"bridge/internal/adapter"
	"bridge/internal/errors"
	"bridge/pkg/exception"

	"github.com/gin-gonic/gin"
	"github.com/yanun0323/logs"
)

type errorResponse struct {
	Error  string `json:"error"`
	Status string `json:"status,omitempty"`
}

// statusCode maps a call outcome to the front door status.
func statusCode(env adapter.Envelope, err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch {
	case errors.Is(err, exception.ErrTimedOut),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, exception.ErrSendFailed),
		errors.Is(err, exception.ErrTransport):
		return http.StatusBadGateway
	case errors.Is(err, exception.ErrNotAuthenticated),
		errors.Is(err, exception.ErrSessionClosed),
		errors.Is(err, exception.ErrPoolSaturated),
		errors.Is(err, exception.ErrPoolClosed):
		return http.StatusServiceUnavailable
	case badInput(err):
		return http.StatusBadRequest
	case errors.Is(err, exception.ErrInResponseError):
		if env.HTTPStatus >= http.StatusBadRequest {
			return env.HTTPStatus
		}
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

func badInput(err error) bool {
	for _, target := range []error{
		exception.ErrInvalidArgument,
		exception.ErrOrderUnsupportedType,
		exception.ErrOrderInvalidInstrument,
		exception.ErrOrderInvalidAmount,
		exception.ErrOrderInvalidPrice,
		exception.ErrOrderEmptyOrderID,
		exception.ErrOrderEmptyChannel,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// reply answers with the envelope whenever the call produced one, and records it.
func (s *Server) reply(c *gin.Context, channel string, env adapter.Envelope, err error) {
	code := statusCode(env, err)

	if env.Status.IsAvailable() {
		if jerr := s.journal.Record(c.Request.Context(), channel, c.FullPath(), env); jerr != nil {
			logs.Warnf("api: journal %s, err: %+v", c.FullPath(), jerr)
		}
	}

	if err != nil && code != http.StatusOK && !env.Status.IsAvailable() {
		c.JSON(code, errorResponse{Error: err.Error()})
		return
	}

	c.JSON(code, env)
}

func (s *Server) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func bearerToken(c *gin.Context) (string, bool) {
	h := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}

func (s *Server) requireToken(c *gin.Context) (string, bool) {
	token, ok := bearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "missing or invalid token"})
	}
	return token, ok
}
