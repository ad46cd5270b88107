package http

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/samber/lo"

	"github.com/quantumauth-io/refi-pool-dashboard/internal/dashboard"
	"github.com/quantumauth-io/refi-pool-dashboard/internal/wallet"
)

func (s *Server) Index(c *gin.Context) {
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(dashboard.RenderPage(s.display.View())))
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{JSONKeyOK: true, JSONKeyLiveClients: s.live.count()})
}

func (s *Server) Network(c *gin.Context) {
	c.JSON(http.StatusOK, s.chain)
}

func (s *Server) Wallet(c *gin.Context) {
	c.JSON(http.StatusOK, s.walletRes())
}

func (s *Server) walletRes() walletRes {
	return walletRes{
		State: s.wallet.State(),
		Connectors: lo.Map(s.wallet.Connectors(), func(conn wallet.Connector, _ int) connectorRes {
			return connectorRes{ID: conn.ID(), Name: conn.Name()}
		}),
	}
}

func (s *Server) WalletConnect(c *gin.Context) {
	var req connectReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{JSONKeyError: HTTPErrorInvalidJSONText})
		return
	}

	st, err := s.wallet.Connect(c.Request.Context(), req.Connector, req.Address)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, wallet.ErrConnection) {
			status = http.StatusUnprocessableEntity
		}
		log.Warn(WalletConnectFailedText, "connector", req.Connector, "error", err)
		c.JSON(status, gin.H{JSONKeyError: err.Error(), JSONKeyState: st})
		return
	}
	c.JSON(http.StatusOK, gin.H{JSONKeyOK: true, JSONKeyState: st})
}

func (s *Server) WalletDisconnect(c *gin.Context) {
	if err := s.wallet.Disconnect(c.Request.Context()); err != nil {
		log.Warn(WalletDisconnectFailedText, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{JSONKeyError: WalletDisconnectFailedText, JSONKeyState: s.wallet.State()})
		return
	}
	c.JSON(http.StatusOK, gin.H{JSONKeyOK: true, JSONKeyState: s.wallet.State()})
}

func (s *Server) Balances(c *gin.Context) {
	c.JSON(http.StatusOK, newBalancesRes(s.display.View()))
}

func (s *Server) BalancesRefresh(c *gin.Context) {
	s.display.Refetch()
	c.JSON(http.StatusAccepted, gin.H{JSONKeyAccepted: true})
}

// Live upgrades to a websocket and streams a render message now and after
// every dashboard change.
func (s *Server) Live(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn("live upgrade failed", "error", err)
		return
	}

	client := newLiveClient(conn)
	if msg, err := encodeLive(s.display.View()); err == nil {
		client.enqueue(msg)
	}
	s.live.add(client)

	go client.writer()
	go client.reader(func() { s.live.remove(client) })
}
