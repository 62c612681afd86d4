// Package di provides dependency injection configuration for the Shelfwise server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/shelfwise/shelfwise-server/internal/backup"
	"github.com/shelfwise/shelfwise-server/internal/config"
	"github.com/shelfwise/shelfwise-server/internal/di/providers"
	"github.com/shelfwise/shelfwise-server/internal/logger"
	"github.com/shelfwise/shelfwise-server/internal/service"
	"github.com/shelfwise/shelfwise-server/internal/validation"
)

// NewContainer creates the DI container with the providers every entry
// point shares: configuration, storage, notifications and the services.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideClock)
	do.Provide(injector, providers.ProvideValidator)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Notification layer
	do.Provide(injector, providers.ProvideOutbox)
	do.Provide(injector, providers.ProvideTransport)
	do.Provide(injector, providers.ProvideDispatcher)

	// Business services
	do.Provide(injector, providers.ProvideInventoryLedger)
	do.Provide(injector, providers.ProvideCatalogService)
	do.Provide(injector, providers.ProvideMemberService)
	do.Provide(injector, providers.ProvideFineService)
	do.Provide(injector, providers.ProvideBorrowService)
	do.Provide(injector, providers.ProvideReservationService)
	do.Provide(injector, providers.ProvideSettingsService)
	do.Provide(injector, providers.ProvideReportService)
	do.Provide(injector, providers.ProvideSweepService)
	do.Provide(injector, providers.ProvideBackupService)
	do.Provide(injector, providers.ProvideRestoreService)

	// Workers
	do.Provide(injector, providers.ProvideSweepJob)
	do.Provide(injector, providers.ProvideRateLimiter)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and starts the server and workers.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*validation.Validator](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*providers.DispatcherHandle](injector)

	// Business services
	_ = do.MustInvoke[*service.CatalogService](injector)
	_ = do.MustInvoke[*service.MemberService](injector)
	_ = do.MustInvoke[*service.BorrowService](injector)
	_ = do.MustInvoke[*service.ReservationService](injector)
	_ = do.MustInvoke[*service.FineService](injector)
	_ = do.MustInvoke[*service.SettingsService](injector)
	_ = do.MustInvoke[*service.ReportService](injector)
	_ = do.MustInvoke[*service.SweepService](injector)
	_ = do.MustInvoke[*backup.BackupService](injector)
	_ = do.MustInvoke[*backup.RestoreService](injector)

	// Trigger search reindex if needed
	providers.TriggerSearchReindexIfNeeded(injector)

	// Workers
	_ = do.MustInvoke[*providers.SweepJob](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
