// Package handlers provides the HTTP JSON API of the job board, mounted on
// a grpc-gateway mux, and a gRPC server exposing the standard health
// service. It bridges the transport layer and the business logic.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gartstein/jobboard/internal/jobboard/auth"
	"github.com/gartstein/jobboard/internal/jobboard/metrics"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name reported by the gRPC health service.
const ServiceName = "jobboard"

// Server holds references to both a gRPC server and an HTTP server.
type Server struct {
	base
	grpcServer      *grpc.Server
	httpServer      *http.Server
	health          *health.Server
	grpcEndpoint    string
	httpEndpoint    string
	shutdownTimeout time.Duration
}

// NewServer constructs a Server with separate endpoints for gRPC and HTTP.
func NewServer(
	grpcPort int,
	httpPort int,
	logger *zap.Logger,
	grpcOpts ...grpc.ServerOption,
) *Server {
	healthServer := health.NewServer()
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	grpcServer := grpc.NewServer(grpcOpts...)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	return &Server{
		base:            base{logger: logger.Named("server")},
		grpcServer:      grpcServer,
		httpServer:      &http.Server{ReadHeaderTimeout: 10 * time.Second},
		health:          healthServer,
		grpcEndpoint:    fmt.Sprintf(":%d", grpcPort),
		httpEndpoint:    fmt.Sprintf(":%d", httpPort),
		shutdownTimeout: 5 * time.Second,
	}
}

// SetShutdownTimeout bounds how long Stop waits for in-flight HTTP requests.
func (s *Server) SetShutdownTimeout(d time.Duration) {
	if d > 0 {
		s.shutdownTimeout = d
	}
}

// RegisterHTTPGateway builds the HTTP mux: the given routes plus /healthz
// and /metrics, behind the auth middleware and request metrics.
func (s *Server) RegisterHTTPGateway(verifier auth.Verifier, routes ...Routes) error {
	mux := runtime.NewServeMux(runtime.WithMiddlewares(recordRoute))
	s.mux = mux

	for _, r := range routes {
		if err := r.Register(mux); err != nil {
			return err
		}
	}
	if err := mux.HandlePath(http.MethodGet, "/healthz", s.Healthz); err != nil {
		return err
	}
	metricsHandler := metrics.Handler()
	err := mux.HandlePath(http.MethodGet, "/metrics", func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		metricsHandler.ServeHTTP(w, r)
	})
	if err != nil {
		return err
	}

	s.httpServer.Handler = metrics.InstrumentHandler(auth.HTTPMiddleware(mux, verifier, s.logger))
	s.httpServer.Addr = s.httpEndpoint
	return nil
}

// recordRoute labels request metrics with the matched route pattern.
func recordRoute(next runtime.HandlerFunc) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		if pattern, ok := runtime.HTTPPattern(r.Context()); ok {
			metrics.SetRoute(r.Context(), strings.ReplaceAll(pattern.String(), "=*}", "}"))
		}
		next(w, r, params)
	}
}

// Handler returns the HTTP handler built by RegisterHTTPGateway.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Healthz reports the gRPC health status over HTTP.
func (s *Server) Healthz(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	resp, err := s.health.Check(r.Context(), &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	code := http.StatusOK
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		code = http.StatusServiceUnavailable
	}
	s.respond(w, r, code, resp)
}

// SetServing flips the reported health of the service.
func (s *Server) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_SERVING
	if !serving {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(ServiceName, st)
}

// Start runs the gRPC and HTTP servers concurrently, returning on the first error.
func (s *Server) Start() error {
	var wg sync.WaitGroup
	wg.Add(2)
	errChan := make(chan error, 2)

	// Start gRPC Server
	go func() {
		defer wg.Done()
		s.logger.Info("Starting gRPC server", zap.String("endpoint", s.grpcEndpoint))
		lis, err := net.Listen("tcp", s.grpcEndpoint)
		if err != nil {
			errChan <- fmt.Errorf("gRPC listen error: %w", err)
			return
		}
		if err := s.grpcServer.Serve(lis); err != nil {
			errChan <- fmt.Errorf("gRPC serve error: %w", err)
		}
	}()

	// Start HTTP Server
	go func() {
		defer wg.Done()
		s.logger.Info("Starting HTTP server", zap.String("endpoint", s.httpEndpoint))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP serve error: %w", err)
		}
	}()

	go func() {
		wg.Wait()
		close(errChan)
	}()

	for err := range errChan {
		if err != nil {
			return err
		}
	}
	return nil
}

// Stop reports NOT_SERVING, then gracefully shuts down both servers.
func (s *Server) Stop() {
	s.logger.Info("Shutting down servers...")
	s.health.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	s.grpcServer.GracefulStop()

	s.logger.Info("Servers stopped")
}
