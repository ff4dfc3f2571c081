package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	"github.com/joseph-ayodele/rod-records/internal/handler"
	"github.com/joseph-ayodele/rod-records/internal/server"
)

const shutdownGrace = 10 * time.Second

// Router builds the HTTP surface over the app's components.
func (a *App) Router() *gin.Engine {
	var probe handler.EngineProbe
	if a.Handwriting != nil {
		probe = a.Handwriting
	}
	var pinger handler.Pinger
	if a.DB != nil {
		pinger = a.DB
	}
	docs := handler.NewDocumentHandler(a.Processor, a.Exporter, a.Config.Server.UploadDir, a.Config.Server.MaxUploadMB, a.Logger)
	return handler.NewRouter(docs, handler.NewHealthHandler(probe, pinger), a.Logger)
}

// Serve runs the gRPC and HTTP listeners until ctx is cancelled or either
// listener fails. Empty addresses disable the corresponding surface.
func (a *App) Serve(ctx context.Context) error {
	cfg := a.Config.Server
	if cfg.GRPCAddr == "" && cfg.HTTPAddr == "" {
		return errors.New("no listen address configured")
	}
	if cfg.UploadDir != "" {
		if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
			return fmt.Errorf("upload dir: %w", err)
		}
	}

	errCh := make(chan error, 2)

	var (
		grpcServer *grpc.Server
		hs         *health.Server
	)
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		svc := server.NewExtractionService(a.Processor, a.Ingestor, a.Logger)
		grpcServer, hs = server.New(svc, a.Logger)

		a.Logger.Info("gRPC serving", "addr", lis.Addr().String())
		go func() {
			if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- fmt.Errorf("grpc serve: %w", err)
			}
		}()
	}

	var httpServer *http.Server
	if cfg.HTTPAddr != "" {
		gin.SetMode(gin.ReleaseMode)
		httpServer = &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           a.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		a.Logger.Info("HTTP serving", "addr", cfg.HTTPAddr)
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http serve: %w", err)
			}
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
		a.Logger.Info("shutting down")
	case serveErr = <-errCh:
		a.Logger.Error("listener failed", "error", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			a.Logger.Warn("http shutdown", "error", err)
		}
	}
	if grpcServer != nil {
		hs.Shutdown()
		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-shutdownCtx.Done():
			grpcServer.Stop()
		}
	}
	return serveErr
}
