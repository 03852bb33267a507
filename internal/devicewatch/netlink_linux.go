//go:build linux

package devicewatch

import (
	"context"

	"github.com/pilebones/go-udev/netlink"

	"mirrorvault/internal/logging"
)

type platform struct {
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// Start connects to the kernel uevent socket. Connection failures are
// logged and leave the watcher idle.
func (w *Watcher) Start(ctx context.Context) error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		logging.WarnWithContext(w.logger, "failed to connect to netlink socket", "netlink_connect_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "ensure the daemon may open netlink sockets"),
			logging.String(logging.FieldImpact, "runs will not start when drives are attached"),
		)
		return nil
	}
	w.conn = conn
	w.quit = make(chan struct{})
	w.running = true

	go w.loop(ctx, conn, w.quit)
	w.logger.Info("device watcher started",
		logging.String(logging.FieldEventType, "device_watch_started"),
		logging.String("subsystem", w.subsystem),
	)
	return nil
}

// Stop closes the netlink socket.
func (w *Watcher) Stop() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	close(w.quit)
	w.quit = nil
	_ = w.conn.Close()
	w.conn = nil
	w.running = false
	w.logger.Info("device watcher stopped", logging.String(logging.FieldEventType, "device_watch_stopped"))
}

// Running reports whether the netlink listener is active.
func (w *Watcher) Running() bool {
	if w == nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) loop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, w.matcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case ev := <-queue:
			w.Handle(string(ev.Action), ev.Env)
		case err := <-errs:
			logging.WarnWithContext(w.logger, "netlink monitor error", "netlink_monitor_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "attach detection may miss events"),
			)
		}
	}
}

func (w *Watcher) matcher() netlink.Matcher {
	action := "add"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env:    map[string]string{"SUBSYSTEM": w.subsystem},
	})
	return rules
}
