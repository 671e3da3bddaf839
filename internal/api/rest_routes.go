package api

import (
	"net/http"

	"bridge/internal/adapter"
	"bridge/internal/journal"

	"github.com/gin-gonic/gin"
	"github.com/yanun0323/logs"
)

func (s *Server) do(c *gin.Context, op adapter.Operation, token string, err error) {
	if err != nil {
		s.badRequest(c, err)
		return
	}

	env, err := s.oneShot.Do(c.Request.Context(), op, token)
	s.reply(c, journal.ChannelREST, env, err)
}

func (s *Server) restAuth(c *gin.Context) {
	var req authRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	creds := adapter.NewCredentials(req.ClientID, req.ClientSecret)
	if !creds.Valid() {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "client_id and client_secret are required"})
		return
	}

	res, env, err := s.oneShot.Authenticate(c.Request.Context(), creds)
	if env.Status.IsAvailable() {
		if jerr := s.journal.Record(c.Request.Context(), journal.ChannelREST, c.FullPath(), env); jerr != nil {
			logs.Warnf("api: journal %s, err: %+v", c.FullPath(), jerr)
		}
	}
	if err != nil {
		c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error(), Status: env.Status.String()})
		return
	}

	c.JSON(http.StatusOK, authResponse{
		AccessToken: res.AccessToken,
		ExpiresIn:   res.ExpiresIn,
		Scope:       res.Scope,
		HTTPStatus:  env.HTTPStatus,
		LatencyMs:   float64(env.Latency.Microseconds()) / 1000,
	})
}

func (s *Server) restBuy(c *gin.Context) {
	token, ok := s.requireToken(c)
	if !ok {
		return
	}

	op, err := buildBuy(c)
	s.do(c, op, token, err)
}

func (s *Server) restCancel(c *gin.Context) {
	token, ok := s.requireToken(c)
	if !ok {
		return
	}

	op, err := adapter.CancelOrder(c.Query("order_id"))
	s.do(c, op, token, err)
}

func (s *Server) restOrderBook(c *gin.Context) {
	op, err := buildOrderBook(c, 2)
	s.do(c, op, "", err)
}

func (s *Server) restOrders(c *gin.Context) {
	token, ok := s.requireToken(c)
	if !ok {
		return
	}

	op, err := adapter.GetOpenOrders(c.DefaultQuery("instrument", defaultInstrument))
	s.do(c, op, token, err)
}

func (s *Server) restPositions(c *gin.Context) {
	token, ok := s.requireToken(c)
	if !ok {
		return
	}

	op, err := adapter.GetPositions(c.DefaultQuery("currency", defaultCurrency), c.DefaultQuery("kind", defaultKind))
	s.do(c, op, token, err)
}

func (s *Server) restModify(c *gin.Context) {
	token, ok := s.requireToken(c)
	if !ok {
		return
	}

	op, err := buildModify(c)
	s.do(c, op, token, err)
}
