package iterator

import "sync"

// EndListeners holds the OnEnd listeners of a PartitionIterator. Listeners fire
// exactly once, either when the iterator runs out of Partitions or when it is Closed.
type EndListeners struct {
	lock      sync.Mutex
	fired     bool
	listeners []func()
}

// OnEnd registers a listener. If the listeners have already fired, it fires immediately.
func (el *EndListeners) OnEnd(onEnd func()) {
	el.lock.Lock()
	if el.fired {
		el.lock.Unlock()
		onEnd()
		return
	}
	el.listeners = append(el.listeners, onEnd)
	el.lock.Unlock()
}

// Fire calls every registered listener, once
func (el *EndListeners) Fire() {
	el.lock.Lock()
	if el.fired {
		el.lock.Unlock()
		return
	}
	el.fired = true
	listeners := el.listeners
	el.listeners = nil
	el.lock.Unlock()
	for _, l := range listeners {
		l()
	}
}

// Fired returns true iff the listeners have fired
func (el *EndListeners) Fired() bool {
	el.lock.Lock()
	defer el.lock.Unlock()
	return el.fired
}
