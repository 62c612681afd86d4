package providers

import (
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/shelfwise/shelfwise-server/internal/backup"
	"github.com/shelfwise/shelfwise-server/internal/config"
	"github.com/shelfwise/shelfwise-server/internal/logger"
	"github.com/shelfwise/shelfwise-server/internal/service"
	"github.com/shelfwise/shelfwise-server/internal/validation"
)

// ProvideClock provides the wall clock used by every workflow.
func ProvideClock(i do.Injector) (service.Clock, error) {
	return service.SystemClock{}, nil
}

// ProvideValidator provides the shared struct validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideInventoryLedger provides the copy-count ledger.
func ProvideInventoryLedger(i do.Injector) (*service.InventoryLedger, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	clock := do.MustInvoke[service.Clock](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewInventoryLedger(storeHandle.Store, clock, log.Component("ledger")), nil
}

// ProvideCatalogService provides the book catalog service.
func ProvideCatalogService(i do.Injector) (*service.CatalogService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	ledger := do.MustInvoke[*service.InventoryLedger](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	clock := do.MustInvoke[service.Clock](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCatalogService(storeHandle.Store, ledger, indexHandle.BookIndex, v, clock, log.Component("catalog")), nil
}

// ProvideMemberService provides the member service.
func ProvideMemberService(i do.Injector) (*service.MemberService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	clock := do.MustInvoke[service.Clock](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewMemberService(storeHandle.Store, v, clock, log.Component("members")), nil
}

// ProvideFineService provides the fine ledger service.
func ProvideFineService(i do.Injector) (*service.FineService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	clock := do.MustInvoke[service.Clock](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewFineService(storeHandle.Store, clock, log.Component("fines")), nil
}

// ProvideBorrowService provides the loan workflow.
func ProvideBorrowService(i do.Injector) (*service.BorrowService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	ledger := do.MustInvoke[*service.InventoryLedger](i)
	fines := do.MustInvoke[*service.FineService](i)
	clock := do.MustInvoke[service.Clock](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewBorrowService(storeHandle.Store, ledger, fines, clock, log.Component("borrow")), nil
}

// ProvideReservationService provides the reservation workflow.
func ProvideReservationService(i do.Injector) (*service.ReservationService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	ledger := do.MustInvoke[*service.InventoryLedger](i)
	borrow := do.MustInvoke[*service.BorrowService](i)
	dispatcher := do.MustInvoke[*DispatcherHandle](i)
	clock := do.MustInvoke[service.Clock](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewReservationService(storeHandle.Store, ledger, borrow, dispatcher.Dispatcher, clock, log.Component("reservations")), nil
}

// ProvideSettingsService provides the policy settings service.
func ProvideSettingsService(i do.Injector) (*service.SettingsService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	clock := do.MustInvoke[service.Clock](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSettingsService(storeHandle.Store, v, clock, log.Component("settings")), nil
}

// ProvideReportService provides the dashboard summary service.
func ProvideReportService(i do.Injector) (*service.ReportService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	clock := do.MustInvoke[service.Clock](i)

	return service.NewReportService(storeHandle.Store, clock), nil
}

// ProvideSweepService provides the maintenance sweep.
func ProvideSweepService(i do.Injector) (*service.SweepService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	reservations := do.MustInvoke[*service.ReservationService](i)
	fines := do.MustInvoke[*service.FineService](i)
	dispatcher := do.MustInvoke[*DispatcherHandle](i)
	clock := do.MustInvoke[service.Clock](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSweepService(storeHandle.Store, reservations, fines, dispatcher.Dispatcher, clock, log.Component("sweep")), nil
}

// ProvideBackupService provides archive export and management.
func ProvideBackupService(i do.Injector) (*backup.BackupService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	backupDir := filepath.Join(cfg.Storage.DataPath, "backups")
	return backup.NewBackupService(storeHandle.Store, backupDir, Version, log.Component("backup")), nil
}

// ProvideRestoreService provides backup restore. The catalog rebuilds the
// search index after a restore.
func ProvideRestoreService(i do.Injector) (*backup.RestoreService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	catalog := do.MustInvoke[*service.CatalogService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return backup.NewRestoreService(storeHandle.Store, catalog, log.Component("restore")), nil
}
