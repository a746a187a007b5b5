// Package devserver wires the development backend: sqlite storage, upload
// directory and the HTTP/websocket routes.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"smart-spend/internal/config"
	"smart-spend/internal/database"
	"smart-spend/internal/handlers"
	"smart-spend/internal/llm"
	"smart-spend/internal/ocr"
	"smart-spend/internal/storage"
)

const budgetCheckInterval = time.Hour

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	// Money goes over the wire as JSON numbers, like the production API.
	decimal.MarshalJSONWithoutQuotes = true

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	store, err := storage.NewLocalStorage(cfg.UploadDir)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	h := handlers.New(database.NewRepository(db), store, logger)
	if cfg.OCREndpoint != "" {
		h.WithOCR(ocr.NewClient(cfg.OCREndpoint, cfg.RequestTimeout))
		logger.Info("OCR enabled", zap.String("endpoint", cfg.OCREndpoint))
	}
	if cfg.OllamaURL != "" {
		h.WithLLM(llm.NewClient(cfg.OllamaURL, cfg.OllamaModel, 4*cfg.RequestTimeout))
		logger.Info("LLM fallback enabled", zap.String("url", cfg.OllamaURL), zap.String("model", cfg.OllamaModel))
	}
	go h.WatchBudgets(ctx, budgetCheckInterval)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", zap.String("url", "http://localhost:"+cfg.ServerPort))
		for _, ip := range lanIPs() {
			logger.Info("LAN access", zap.String("url", "http://"+ip+":"+cfg.ServerPort))
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("Server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func lanIPs() []string {
	var ips []string
	ifaces, err := net.Interfaces()
	if err != nil {
		return ips
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil {
				continue
			}
			ip = ip.To4()
			if ip == nil {
				continue
			}
			ips = append(ips, ip.String())
		}
	}
	return ips
}
