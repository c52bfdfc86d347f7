package monitor

import "github.com/vigiacam/vigia/pkg/gen"

const WatcherChannelSize = 100

// Register to receive the snapshot of every processed frame.
func (m *Monitor) AddWatcher() chan *Snapshot {
	m.watchersLock.Lock()
	defer m.watchersLock.Unlock()
	ch := make(chan *Snapshot, WatcherChannelSize)
	m.watchers = append(m.watchers, ch)
	return ch
}

// Unregister from frame snapshots
func (m *Monitor) RemoveWatcher(ch chan *Snapshot) {
	m.watchersLock.Lock()
	defer m.watchersLock.Unlock()
	for i, w := range m.watchers {
		if w == ch {
			m.watchers = gen.DeleteFromSliceUnordered(m.watchers, i)
			return
		}
	}
	m.Log.Warnf("Monitor.RemoveWatcher failed to find channel")
}

// Register to receive alert events (color match, long dwell, high speed).
func (m *Monitor) AddAlertWatcher() chan *AlertEvent {
	m.watchersLock.Lock()
	defer m.watchersLock.Unlock()
	ch := make(chan *AlertEvent, 20)
	m.alertWatchers = append(m.alertWatchers, ch)
	return ch
}

// Unregister an alert watcher
func (m *Monitor) RemoveAlertWatcher(ch chan *AlertEvent) {
	m.watchersLock.Lock()
	defer m.watchersLock.Unlock()
	for i, w := range m.alertWatchers {
		if w == ch {
			m.alertWatchers = gen.DeleteFromSliceUnordered(m.alertWatchers, i)
			return
		}
	}
	m.Log.Warnf("Monitor.RemoveAlertWatcher failed to find channel")
}

func (m *Monitor) sendToWatchers(snapshot *Snapshot) {
	m.watchersLock.RLock()
	// If a watcher falls behind, we drop frames rather than stall. A stalled
	// watcher is usually waiting on IO, so stalling the pipeline would not
	// help it, and it must not be able to stall the other watchers.
	for _, ch := range m.watchers {
		if len(ch) >= cap(ch)*9/10 {
			m.Log.Warnf("Monitor watcher is falling behind. I am going to drop frames.")
		} else {
			ch <- snapshot
		}
	}
	m.watchersLock.RUnlock()
}

func (m *Monitor) sendToAlertWatchers(event *AlertEvent) {
	m.watchersLock.RLock()
	for _, ch := range m.alertWatchers {
		if len(ch) >= cap(ch)*9/10 {
			m.Log.Warnf("Monitor alert watcher is falling behind. I am going to drop alerts.")
		} else {
			ch <- event
		}
	}
	m.watchersLock.RUnlock()
}
