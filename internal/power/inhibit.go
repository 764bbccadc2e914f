package power

import (
	"fmt"
	"os"
	"sync"

	"github.com/godbus/dbus/v5"
)

// Inhibitor takes a logind inhibitor lock while held, so logind leaves the
// inhibited key handling to this process. The lock is the usual fd-based
// one: logind releases it when the descriptor closes.
type Inhibitor struct {
	what string
	who  string
	why  string

	mu   sync.Mutex
	conn *dbus.Conn
	lock *os.File
}

// NewInhibitor prepares an inhibitor lock request. what is the logind
// colon-separated operation list, e.g. "handle-power-key:handle-volume-keys".
func NewInhibitor(what, who, why string) *Inhibitor {
	return &Inhibitor{what: what, who: who, why: why}
}

// Acquire connects to the system bus and takes the lock.
func (i *Inhibitor) Acquire() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.lock != nil {
		return nil
	}

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return fmt.Errorf("connect system bus: %w", err)
	}

	var fd dbus.UnixFD
	obj := conn.Object(logindDest, logindPath)
	err = obj.Call(logindManager+".Inhibit", 0, i.what, i.who, i.why, "block").Store(&fd)
	if err != nil {
		conn.Close()
		return fmt.Errorf("inhibit %s: %w", i.what, err)
	}

	i.conn = conn
	i.lock = os.NewFile(uintptr(fd), "logind-inhibit")
	return nil
}

// Release drops the lock. Safe to call without a prior Acquire.
func (i *Inhibitor) Release() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.lock != nil {
		i.lock.Close()
		i.lock = nil
	}
	if i.conn != nil {
		i.conn.Close()
		i.conn = nil
	}
}
