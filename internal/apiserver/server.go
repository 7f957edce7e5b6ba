// Package apiserver is the read-only HTTP API: a fixed set of endpoints for
// wallet summaries, PnL, positions, and subscription management, built with
// gin.New() + gin.Recovery() + route groups, mapping internal/apperr kinds
// to status codes.
package apiserver

import (
	"context"
	"net/http"
	"time"

	"github.com/cortexlabs/cortexd/internal/apperr"
	"github.com/cortexlabs/cortexd/internal/domain"
	"github.com/cortexlabs/cortexd/internal/metrics"
	"github.com/cortexlabs/cortexd/internal/subscription"
	"github.com/gin-gonic/gin"
)

// Store is the subset of internal/store.Store the read API depends on.
type Store interface {
	GetSummary(ctx context.Context, wallet string) (domain.WalletSummary, error)
	ListTransactions(ctx context.Context, wallet string) ([]*domain.ParsedTransaction, error)
}

// Server wires the store and subscription manager into a gin router.
type Server struct {
	store   Store
	manager *subscription.Manager
}

func New(store Store, manager *subscription.Manager) *Server {
	return &Server{store: store, manager: manager}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", s.handleHealth)

	v1 := r.Group("/api/v1")
	v1.GET("/user/:wallet/summary", s.handleSummary)
	v1.GET("/user/:wallet/pnl", s.handlePnL)
	v1.GET("/user/:wallet/positions", s.handlePositions)
	v1.GET("/index", s.handleListIndex)
	v1.POST("/index", s.handleStartIndex)
	v1.DELETE("/index/:wallet", s.handleStopIndex)

	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	status := "ok"
	if s.store == nil {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status": status,
		"time":   time.Now().UTC(),
	})
}

// handleSummary returns the persisted rollup for wallet. Unknown wallets get
// a zero-valued summary and a 200, never a 404.
func (s *Server) handleSummary(c *gin.Context) {
	wallet := c.Param("wallet")
	summary, err := s.store.GetSummary(c.Request.Context(), wallet)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handlePnL(c *gin.Context) {
	wallet := c.Param("wallet")
	windowParam := c.Query("window")

	window, ok := domain.ParseTimeWindow(windowParam)
	if !ok {
		writeError(c, apperr.InvalidInput("invalid window %q", windowParam))
		return
	}

	txs, err := s.store.ListTransactions(c.Request.Context(), wallet)
	if err != nil {
		writeError(c, err)
		return
	}

	byProtocol := metrics.ComputePnLByProtocol(txs, window)
	aggregate := metrics.ComputePnL(txs)

	c.JSON(http.StatusOK, gin.H{
		"wallet":      wallet,
		"window":      window,
		"aggregate":   aggregate,
		"by_protocol": byProtocol,
	})
}

func (s *Server) handlePositions(c *gin.Context) {
	wallet := c.Param("wallet")
	txs, err := s.store.ListTransactions(c.Request.Context(), wallet)
	if err != nil {
		writeError(c, err)
		return
	}
	positions := metrics.DerivePositions(wallet, txs)
	c.JSON(http.StatusOK, gin.H{
		"wallet":    wallet,
		"positions": positions,
	})
}

func (s *Server) handleListIndex(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"subscriptions": s.manager.List(),
	})
}

type startIndexRequest struct {
	Wallet string `json:"wallet" binding:"required"`
}

func (s *Server) handleStartIndex(c *gin.Context) {
	var req startIndexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.InvalidInput("request body must include \"wallet\""))
		return
	}

	result, err := s.manager.Start(req.Wallet)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallet": req.Wallet, "result": result})
}

func (s *Server) handleStopIndex(c *gin.Context) {
	wallet := c.Param("wallet")
	result := s.manager.Stop(wallet)
	c.JSON(http.StatusOK, gin.H{"wallet": wallet, "result": result})
}

// writeError maps an internal/apperr-classified error to a status code.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindInvalidInput:
		status = http.StatusBadRequest
	case apperr.KindTransport:
		status = http.StatusBadGateway
	case apperr.KindStore:
		status = http.StatusInternalServerError
	case apperr.KindCancelled:
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
