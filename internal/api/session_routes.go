package api

import (
	"bridge/internal/adapter"
	"bridge/internal/journal"

	"github.com/gin-gonic/gin"
)

func (s *Server) call(c *gin.Context, op adapter.Operation, err error) {
	if err != nil {
		s.badRequest(c, err)
		return
	}

	env, err := s.session.Call(c.Request.Context(), op)
	s.reply(c, journal.ChannelSession, env, err)
}

func (s *Server) wsBuy(c *gin.Context) {
	op, err := buildBuy(c)
	s.call(c, op, err)
}

func (s *Server) wsOpenOrders(c *gin.Context) {
	op, err := adapter.GetOpenOrders(c.DefaultQuery("instrument", defaultInstrument))
	s.call(c, op, err)
}

func (s *Server) wsCancelOrder(c *gin.Context) {
	op, err := adapter.CancelOrder(c.Query("order_id"))
	s.call(c, op, err)
}

func (s *Server) wsModifyOrder(c *gin.Context) {
	op, err := buildModify(c)
	s.call(c, op, err)
}

func (s *Server) wsPositions(c *gin.Context) {
	op, err := adapter.GetPositions(c.DefaultQuery("currency", defaultCurrency), c.DefaultQuery("kind", defaultKind))
	s.call(c, op, err)
}

func (s *Server) wsOrderBook(c *gin.Context) {
	op, err := buildOrderBook(c, 1)
	s.call(c, op, err)
}
