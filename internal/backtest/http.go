package backtest

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"stratsim/internal/fetch"
	"stratsim/internal/store"
	"stratsim/internal/store/resultstore"
)

// HTTPServer exposes the simulator and the stores over a small JSON API.
type HTTPServer struct {
	addr    string
	sim     *Simulator
	prices  *store.PriceStore
	results *resultstore.Store
	source  fetch.Source
	router  *gin.Engine
}

type HTTPConfig struct {
	Addr      string
	Simulator *Simulator
	Prices    *store.PriceStore
	Results   *resultstore.Store
	Source    fetch.Source
}

func NewHTTPServer(cfg HTTPConfig) (*HTTPServer, error) {
	if cfg.Simulator == nil {
		return nil, errors.New("simulator cannot be nil")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9980"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &HTTPServer{
		addr:    cfg.Addr,
		sim:     cfg.Simulator,
		prices:  cfg.Prices,
		results: cfg.Results,
		source:  cfg.Source,
		router:  router,
	}
	s.registerRoutes()
	return s, nil
}

func (s *HTTPServer) registerRoutes() {
	api := s.router.Group("/api/backtest")
	api.POST("/runs", s.handleRunStart)
	api.GET("/runs", s.handleRunList)
	api.GET("/runs/:id", s.handleRunDetail)
	api.GET("/runs/:id/operations", s.handleRunOperations)
	api.GET("/runs/:id/performance", s.handleRunPerformance)

	data := s.router.Group("/api/data")
	data.POST("/refresh", s.handleRefresh)
	data.GET("/tickers", s.handleTickers)
	data.GET("/coverage", s.handleCoverage)
}

func (s *HTTPServer) handleRunStart(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	run, err := s.sim.StartRun(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"run": run})
}

func (s *HTTPServer) handleRunList(c *gin.Context) {
	if s.results == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "result store disabled"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := s.results.ListRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *HTTPServer) handleRunDetail(c *gin.Context) {
	if s.results == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "result store disabled"})
		return
	}
	run, err := s.results.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run})
}

func (s *HTTPServer) handleRunOperations(c *gin.Context) {
	if s.results == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "result store disabled"})
		return
	}
	ops, err := s.results.ListOperations(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"operations": ops})
}

func (s *HTTPServer) handleRunPerformance(c *gin.Context) {
	if s.results == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "result store disabled"})
		return
	}
	rows, err := s.results.ListPerformance(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"performance": rows})
}

func (s *HTTPServer) handleRefresh(c *gin.Context) {
	if s.source == nil || s.prices == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "data refresh disabled"})
		return
	}
	var req struct {
		Tickers     []string `json:"tickers" binding:"required"`
		Start       string   `json:"start" binding:"required"`
		End         string   `json:"end" binding:"required"`
		Concurrency int      `json:"concurrency"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := fetch.RefreshTickers(c.Request.Context(), s.source, s.prices, req.Tickers, req.Start, req.End, req.Concurrency)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"refreshed": req.Tickers})
}

func (s *HTTPServer) handleTickers(c *gin.Context) {
	if s.prices == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "price store disabled"})
		return
	}
	tickers, err := s.prices.Tickers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickers": tickers})
}

func (s *HTTPServer) handleCoverage(c *gin.Context) {
	if s.prices == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "price store disabled"})
		return
	}
	ticker := c.Query("ticker")
	if ticker == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticker is required"})
		return
	}
	first, last, count, err := s.prices.Coverage(c.Request.Context(), ticker)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ticker": ticker,
		"first":  first,
		"last":   last,
		"count":  count,
	})
}

// Start runs the HTTP server and blocks until ctx is cancelled or the
// listener fails.
func (s *HTTPServer) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

// Handler exposes the router for tests.
func (s *HTTPServer) Handler() http.Handler { return s.router }
