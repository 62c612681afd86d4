package providers

import (
	"github.com/samber/do/v2"

	"github.com/shelfwise/shelfwise-server/internal/config"
	"github.com/shelfwise/shelfwise-server/internal/logger"
	"github.com/shelfwise/shelfwise-server/internal/notify"
)

// OutboxHandle wraps the notification outbox with shutdown capability.
type OutboxHandle struct {
	*notify.Outbox
}

// Shutdown implements do.Shutdownable.
func (h *OutboxHandle) Shutdown() error {
	return h.Close()
}

// ProvideOutbox provides the Badger-backed notification outbox.
func ProvideOutbox(i do.Injector) (*OutboxHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	outbox, err := notify.OpenOutbox(cfg.Storage.OutboxPath(), log.Component("outbox"))
	if err != nil {
		return nil, err
	}
	return &OutboxHandle{Outbox: outbox}, nil
}

// TransportHandle wraps the delivery transport with shutdown capability.
type TransportHandle struct {
	notify.Transport
}

// Shutdown implements do.Shutdownable.
func (h *TransportHandle) Shutdown() error {
	return h.Close()
}

// ProvideTransport selects AMQP delivery when a broker URL is configured and
// falls back to logging notices otherwise.
func ProvideTransport(i do.Injector) (*TransportHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Notify.AMQPURL == "" {
		log.Info("No AMQP broker configured, notifications will be logged")
		return &TransportHandle{Transport: notify.NewLogTransport(log.Component("notify"))}, nil
	}

	t, err := notify.NewAMQPTransport(cfg.Notify.AMQPURL, cfg.Notify.Queue, log.Component("amqp"))
	if err != nil {
		return nil, err
	}
	log.Info("AMQP notification transport ready", "queue", cfg.Notify.Queue)
	return &TransportHandle{Transport: t}, nil
}

// DispatcherHandle wraps the notification dispatcher with shutdown capability.
type DispatcherHandle struct {
	*notify.Dispatcher
}

// Shutdown implements do.Shutdownable.
func (h *DispatcherHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideDispatcher provides the outbox dispatcher and starts its worker.
func ProvideDispatcher(i do.Injector) (*DispatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	outbox := do.MustInvoke[*OutboxHandle](i)
	transport := do.MustInvoke[*TransportHandle](i)

	d := notify.NewDispatcher(outbox.Outbox, transport.Transport, log.Component("dispatcher"), cfg.Notify.RetryInterval)
	d.Start()

	log.Info("Notification dispatcher started", "retry_interval", cfg.Notify.RetryInterval)

	return &DispatcherHandle{Dispatcher: d}, nil
}
