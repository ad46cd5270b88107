package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quantumauth-io/refi-pool-dashboard/internal/httpui"
)

func NewRouter(s *Server, origins []string) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery(), withRequestLog(), withLoopbackOnly(), withCORS(origins))

	r.GET("/", s.Index)

	ui, err := httpui.Handler()
	if err != nil {
		return nil, err
	}
	static := http.StripPrefix("/static", ui)
	r.GET("/static/*filepath", gin.WrapH(static))
	r.HEAD("/static/*filepath", gin.WrapH(static))

	api := r.Group("/api")
	{
		api.GET("/health", s.Health)
		api.GET("/network", s.Network)

		api.GET("/wallet", s.Wallet)
		api.POST("/wallet/connect", s.WalletConnect)
		api.POST("/wallet/disconnect", s.WalletDisconnect)

		api.GET("/balances", s.Balances)
		api.POST("/balances/refresh", s.BalancesRefresh)
	}

	r.GET("/ws", s.Live)

	return r, nil
}
