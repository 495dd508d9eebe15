// Package api
package api

import (
	"errors"
	"net/http"
	"sort"

	"github.com/amirphl/futures-order-bot/internal/exchange"
	"github.com/amirphl/futures-order-bot/internal/intent"
	"github.com/amirphl/futures-order-bot/internal/order"
	"github.com/amirphl/futures-order-bot/internal/session"
	"github.com/amirphl/futures-order-bot/internal/symbols"
	"github.com/gin-gonic/gin"
)

// Server exposes the order pipeline over HTTP. Handlers are thin: each maps
// a request onto one session operation and translates the error taxonomy to
// a status code.
type Server struct {
	sessions    *session.Manager
	registry    *symbols.Registry
	ex          exchange.Client
	skipConfirm bool
}

func NewServer(sessions *session.Manager, registry *symbols.Registry, ex exchange.Client, skipConfirm bool) *Server {
	return &Server{sessions: sessions, registry: registry, ex: ex, skipConfirm: skipConfirm}
}

func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/api/health", s.health)
	r.GET("/api/symbols", s.symbols)
	r.POST("/api/order", s.placeOrder)
	r.POST("/api/chat", s.chat)
	r.POST("/api/confirm", s.confirm)
	r.POST("/api/cancel", s.cancel)
	r.POST("/api/runBot", s.runBot)
	r.POST("/api/cancelOrder", s.cancelOrder)
	r.GET("/api/openOrders", s.openOrders)
	r.GET("/api/positions", s.positions)
	r.GET("/api/trades", s.trades)

	return r
}

type orderRequest struct {
	Session     string `json:"session"`
	Symbol      string `json:"symbol" binding:"required"`
	Side        string `json:"side" binding:"required"`
	Type        string `json:"type" binding:"required"`
	Quantity    string `json:"quantity"`
	Notional    string `json:"notional"`
	Price       string `json:"price"`
	TimeInForce string `json:"time_in_force"`
}

type chatRequest struct {
	Session string `json:"session"`
	Message string `json:"message" binding:"required"`
}

type confirmRequest struct {
	Session string `json:"session"`
	ID      string `json:"id" binding:"required"`
}

type cancelRequest struct {
	Session string `json:"session"`
	ID      string `json:"id"`
}

type runBotRequest struct {
	Session string `json:"session"`
	Symbol  string `json:"symbol" binding:"required"`
}

type cancelOrderRequest struct {
	Symbol  string `json:"symbol" binding:"required"`
	OrderID int64  `json:"order_id" binding:"required"`
}

type pendingPayload struct {
	ID       string `json:"id"`
	Symbol   string `json:"symbol"`
	Side     string `json:"side"`
	Type     string `json:"type"`
	Quantity string `json:"quantity"`
	Price    string `json:"price,omitempty"`
}

type replyPayload struct {
	Reply   string          `json:"reply"`
	Pending *pendingPayload `json:"pending,omitempty"`
	Result  *resultPayload  `json:"result,omitempty"`
}

type resultPayload struct {
	OrderID     int64  `json:"order_id"`
	Status      string `json:"status"`
	ExecutedQty string `json:"executed_qty"`
	AvgPrice    string `json:"avg_price"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "exchange": s.ex.Name()})
}

func (s *Server) symbols(c *gin.Context) {
	listed := s.registry.Symbols()
	sort.Strings(listed)
	c.JSON(http.StatusOK, gin.H{"symbols": listed})
}

func (s *Server) placeOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reply, err := s.sessions.Session(sessionID(req.Session)).PlaceDraft(c.Request.Context(), order.Fields{
		Symbol:      req.Symbol,
		Side:        req.Side,
		Type:        req.Type,
		Quantity:    req.Quantity,
		Notional:    req.Notional,
		Price:       req.Price,
		TimeInForce: req.TimeInForce,
	}, s.skipConfirm)
	s.respond(c, reply, err)
}

func (s *Server) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reply, err := s.sessions.Session(sessionID(req.Session)).HandleMessage(c.Request.Context(), req.Message)
	if errors.Is(err, intent.ErrUnrecognized) {
		c.JSON(http.StatusOK, replyPayload{Reply: "I couldn't read an order from that. Try e.g. \"limit buy BTC at 62000 for 100 usdt\"."})
		return
	}
	s.respond(c, reply, err)
}

func (s *Server) confirm(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reply, err := s.sessions.Session(sessionID(req.Session)).Confirm(c.Request.Context(), req.ID)
	s.respond(c, reply, err)
}

func (s *Server) cancel(c *gin.Context) {
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reply, err := s.sessions.Session(sessionID(req.Session)).Cancel(req.ID)
	s.respond(c, reply, err)
}

func (s *Server) runBot(c *gin.Context) {
	var req runBotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reply, err := s.sessions.Session(sessionID(req.Session)).Suggest(c.Request.Context(), req.Symbol)
	s.respond(c, reply, err)
}

func (s *Server) cancelOrder(c *gin.Context) {
	var req cancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.ex.CancelOrder(c.Request.Context(), req.Symbol, req.OrderID); err != nil {
		s.respond(c, session.Reply{}, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": req.OrderID})
}

func (s *Server) openOrders(c *gin.Context) {
	orders, err := s.ex.OpenOrders(c.Request.Context(), c.Query("symbol"))
	if err != nil {
		s.respond(c, session.Reply{}, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (s *Server) positions(c *gin.Context) {
	positions, err := s.ex.Positions(c.Request.Context(), c.Query("symbol"))
	if err != nil {
		s.respond(c, session.Reply{}, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": positions})
}

func (s *Server) trades(c *gin.Context) {
	trades, err := s.ex.Trades(c.Request.Context(), c.Query("symbol"), 50)
	if err != nil {
		s.respond(c, session.Reply{}, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (s *Server) respond(c *gin.Context, reply session.Reply, err error) {
	if err != nil {
		c.JSON(httpStatus(err), gin.H{"error": err.Error()})
		return
	}
	payload := replyPayload{Reply: reply.Text}
	if reply.Pending != nil {
		payload.Pending = &pendingPayload{
			ID:       reply.Pending.ID,
			Symbol:   reply.Pending.Order.Symbol,
			Side:     string(reply.Pending.Order.Side),
			Type:     string(reply.Pending.Order.Type),
			Quantity: reply.Pending.Order.Quantity.String(),
			Price:    reply.Pending.Order.Price.String(),
		}
	}
	if reply.Result != nil {
		payload.Result = &resultPayload{
			OrderID:     reply.Result.OrderID,
			Status:      reply.Result.Status,
			ExecutedQty: reply.Result.ExecutedQty.String(),
			AvgPrice:    reply.Result.AvgPrice.String(),
		}
	}
	c.JSON(http.StatusOK, payload)
}

// httpStatus maps the error taxonomy onto status codes: validation and gate
// failures are the caller's fault, exchange rejections carry the exchange's
// message, transport failures are a bad gateway.
func httpStatus(err error) int {
	var ex *order.ExchangeError
	switch {
	case errors.As(err, &ex):
		return http.StatusBadRequest
	case errors.Is(err, order.ErrNetwork), errors.Is(err, order.ErrPriceFetch):
		return http.StatusBadGateway
	case errors.Is(err, order.ErrIntent),
		errors.Is(err, order.ErrUnsupportedOrderKind),
		errors.Is(err, order.ErrUnknownSymbol),
		errors.Is(err, order.ErrInvalidPrice),
		errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, order.ErrBelowMinNotional),
		errors.Is(err, order.ErrNoMatchingPending),
		errors.Is(err, order.ErrConfirmationExpired):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func sessionID(s string) string {
	if s == "" {
		return "default"
	}
	return s
}
