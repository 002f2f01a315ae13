package gateway

import (
	"context"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// Server represents the gateway server of the bridge.
type Server struct {
	srv      *http.Server
	srvMux   *mux.Router // http request multiplexer
	listener net.Listener

	started atomic.Bool
}

// NewServer returns a new gateway Server. Browser shells served from the given origins may
// call it cross-origin; no origins allows all of them.
func NewServer(address, port string, origins ...string) *Server {
	srvMux := mux.NewRouter()

	server := &Server{
		srvMux: srvMux,
	}
	corsOpts := cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	}
	server.srv = &http.Server{
		Addr:    net.JoinHostPort(address, port),
		Handler: cors.New(corsOpts).Handler(server),
		// the amount of time allowed to read request headers. set to the default 2 seconds
		ReadHeaderTimeout: 2 * time.Second,
	}
	return server
}

// Start starts the gateway Server, listening on the given address.
func (s *Server) Start(context.Context) error {
	couldStart := s.started.CompareAndSwap(false, true)
	if !couldStart {
		log.Warn("cannot start server: already started")
		return nil
	}
	listener, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.listener = listener
	log.Infow("server started", "listening on", s.srv.Addr)
	//nolint:errcheck
	go s.srv.Serve(listener)
	return nil
}

// Stop stops the gateway Server. Hijacked bridge connections are not tracked by the http
// server and are closed by their sessions.
func (s *Server) Stop(ctx context.Context) error {
	couldStop := s.started.CompareAndSwap(true, false)
	if !couldStop {
		log.Warn("cannot stop server: already stopped")
		return nil
	}
	err := s.srv.Shutdown(ctx)
	if err != nil {
		return err
	}
	s.listener = nil
	log.Info("server stopped")
	return nil
}

// RegisterMiddleware allows to register a custom middleware that will be called before
// http.Request will reach handler.
func (s *Server) RegisterMiddleware(middlewareFuncs ...mux.MiddlewareFunc) {
	for _, m := range middlewareFuncs {
		s.srvMux.Use(m)
	}
}

// RegisterHandlerFunc registers the given http.HandlerFunc on the Server's multiplexer
// on the given pattern.
func (s *Server) RegisterHandlerFunc(pattern string, handlerFunc http.HandlerFunc, method string) {
	s.srvMux.HandleFunc(pattern, handlerFunc).Methods(method)
}

// ServeHTTP serves inbound requests on the Server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.srvMux.ServeHTTP(w, r)
}

// ListenAddr returns the listen address of the server.
func (s *Server) ListenAddr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
