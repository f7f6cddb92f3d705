package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gemologic/lattice/internal/ratelimit"
	"github.com/gemologic/lattice/internal/runtime"
	"github.com/gemologic/lattice/internal/server/http/controllers"
	eventsvc "github.com/gemologic/lattice/internal/services/events"
	webhooksvc "github.com/gemologic/lattice/internal/services/webhooks"
	"github.com/gemologic/lattice/pkg/log"
)

// Server is the HTTP edge: the tracker API, the SSE event streams, and the
// health probe, behind the rate limit and auth middleware.
type Server struct {
	rt  *runtime.Runtime
	srv *http.Server
	lis net.Listener
}

// New assembles the full handler stack. Middleware order, outermost first:
// rate limiting (abusive callers are throttled before anything else runs),
// CORS (preflights answer without credentials), auth, request body cap,
// then the route mux.
func New(rt *runtime.Runtime, limiter *ratelimit.Limiter, events *eventsvc.Service, dispatcher *webhooksvc.Dispatcher, logger log.Logger) *Server {
	cfg := rt.Config()

	mux := http.NewServeMux()
	registry := controllers.NewControllerRegistry(rt, events, dispatcher, logger)
	registry.RegisterAllRoutes(mux)

	var handler http.Handler = mux
	handler = maxBodyBytes(handler, cfg.MaxRequestBodyBytes)
	handler = requireAuth(handler, cfg.Token)
	handler = cors(handler)
	handler = ratelimit.Middleware(limiter, cfg.AuthEnabled())(handler)

	return &Server{rt: rt, srv: &http.Server{Handler: handler}}
}

// ListenAndServe serves until ctx is canceled, then drains connections for
// up to five seconds.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

// Close stops listening immediately.
func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

// Handler exposes the assembled middleware-and-mux stack for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}
