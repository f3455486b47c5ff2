package diag

// Subscribe registers a fanout subscriber and returns the channel + cancel.
func (a *Aggregator) Subscribe() (<-chan Record, func()) {
	if a == nil {
		return nil, func() {}
	}
	ch := make(chan Record, a.depth)
	a.mu.Lock()
	a.subs[ch] = struct{}{}
	count := len(a.subs)
	a.mu.Unlock()
	a.log.Debug("diagnostics subscribe", "subs", count)
	return ch, func() {
		a.mu.Lock()
		_, ok := a.subs[ch]
		delete(a.subs, ch)
		a.mu.Unlock()
		if ok {
			close(ch)
		}
	}
}

// publish delivers one record to every subscriber without blocking. A
// subscriber that cannot keep up loses records rather than stalling the
// supervisor.
func (a *Aggregator) publish(rec Record) {
	a.mu.Lock()
	subs := make([]chan Record, 0, len(a.subs))
	for sub := range a.subs {
		subs = append(subs, sub)
	}
	a.mu.Unlock()
	dropped := 0
	for _, sub := range subs {
		select {
		case sub <- rec:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		a.log.Trace("diagnostics fanout dropped", "count", dropped)
	}
}
