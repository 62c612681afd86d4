package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/shelfwise/shelfwise-server/internal/api"
	"github.com/shelfwise/shelfwise-server/internal/backup"
	"github.com/shelfwise/shelfwise-server/internal/config"
	"github.com/shelfwise/shelfwise-server/internal/logger"
	"github.com/shelfwise/shelfwise-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server and starts listening.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	limiter := do.MustInvoke[*RateLimiterHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	services := &api.Services{
		Catalog:      do.MustInvoke[*service.CatalogService](i),
		Members:      do.MustInvoke[*service.MemberService](i),
		Borrow:       do.MustInvoke[*service.BorrowService](i),
		Reservations: do.MustInvoke[*service.ReservationService](i),
		Fines:        do.MustInvoke[*service.FineService](i),
		Settings:     do.MustInvoke[*service.SettingsService](i),
		Reports:      do.MustInvoke[*service.ReportService](i),
		Sweep:        do.MustInvoke[*service.SweepService](i),
		Backup:       do.MustInvoke[*backup.BackupService](i),
		Restore:      do.MustInvoke[*backup.RestoreService](i),
	}

	handler := api.NewServer(api.Options{
		Store:          storeHandle.Store,
		Services:       services,
		Search:         indexHandle.BookIndex,
		RateLimiter:    limiter.KeyedRateLimiter,
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
		Version:        Version,
		Logger:         log.Component("http"),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv}, nil
}
