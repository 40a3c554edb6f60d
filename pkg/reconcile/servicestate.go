package reconcile

import (
	"net/netip"
	"sync"
	"time"
)

type serviceState struct {
	lock        sync.Mutex
	svc         Service
	lastTarget  netip.Addr
	lastAction  Action
	lastError   string
	lastUpdated time.Time
}

func (ss *serviceState) getResult() (target netip.Addr, action Action, lastError string, lastUpdated time.Time) {
	ss.lock.Lock()
	defer ss.lock.Unlock()

	return ss.lastTarget, ss.lastAction, ss.lastError, ss.lastUpdated
}

func (ss *serviceState) setResult(target netip.Addr, action Action, err error) {
	ss.lock.Lock()
	defer ss.lock.Unlock()

	ss.lastTarget = target
	ss.lastAction = action
	ss.lastError = ""
	if err != nil {
		ss.lastError = err.Error()
	}
	ss.lastUpdated = time.Now()
}
