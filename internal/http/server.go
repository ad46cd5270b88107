package http

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/quantumauth-io/refi-pool-dashboard/internal/chains"
	"github.com/quantumauth-io/refi-pool-dashboard/internal/dashboard"
	"github.com/quantumauth-io/refi-pool-dashboard/internal/wallet"
)

type Deps struct {
	Display *dashboard.Display
	Wallet  *wallet.Client
	Chain   chains.ResolvedChain
	// ListenAddr is used to derive the page's own origins.
	ListenAddr     string
	AllowedOrigins []string
}

type Server struct {
	display *dashboard.Display
	wallet  *wallet.Client
	chain   chains.ResolvedChain

	allowedOrigins map[string]struct{}
	upgrader       websocket.Upgrader
	live           *liveHub
	engine         *gin.Engine
}

// NewServer builds the loopback dashboard server. The live hub runs until
// ctx is done.
func NewServer(ctx context.Context, deps Deps) (*Server, error) {
	if deps.Display == nil || deps.Wallet == nil {
		return nil, errors.New("http: display and wallet are required")
	}

	origins := uniqueStrings(append(localOrigins(deps.ListenAddr), deps.AllowedOrigins...))
	if len(origins) == 0 {
		return nil, errors.Newf("http: cannot derive origins from listen address %q", deps.ListenAddr)
	}

	s := &Server{
		display:        deps.Display,
		wallet:         deps.Wallet,
		chain:          deps.Chain,
		allowedOrigins: make(map[string]struct{}, len(origins)),
		live:           newLiveHub(deps.Display),
	}
	for _, o := range origins {
		if o = normalizeOrigin(o); o != "" {
			s.allowedOrigins[o] = struct{}{}
		}
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}

	engine, err := NewRouter(s, origins)
	if err != nil {
		return nil, err
	}
	s.engine = engine

	go s.live.run(ctx)
	return s, nil
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

// checkOrigin allows same-machine tools (no Origin) and the page's own origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	raw := r.Header.Get("Origin")
	if raw == "" {
		return true
	}
	_, ok := s.allowedOrigins[normalizeOrigin(raw)]
	return ok
}
