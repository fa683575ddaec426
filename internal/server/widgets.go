package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/caffeineduck/coderunner/runner"
)

// widgetManager holds the server's live snippet runners. A widget unused for
// longer than ttl is dropped by the sweeper.
type widgetManager struct {
	mu      sync.RWMutex
	widgets map[string]*widget
	ttl     time.Duration
	now     func() time.Time

	onOpen  func()
	onClose func()

	stop chan struct{}
	once sync.Once
}

type widget struct {
	runner   *runner.Runner
	lastUsed time.Time
}

func newWidgetManager(ttl time.Duration) *widgetManager {
	return &widgetManager{
		widgets: make(map[string]*widget),
		ttl:     ttl,
		now:     time.Now,
		onOpen:  func() {},
		onClose: func() {},
		stop:    make(chan struct{}),
	}
}

func (m *widgetManager) add(r *runner.Runner) string {
	id := uuid.NewString()
	m.mu.Lock()
	m.widgets[id] = &widget{runner: r, lastUsed: m.now()}
	m.mu.Unlock()
	m.onOpen()
	return id
}

func (m *widgetManager) get(id string) (*runner.Runner, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.widgets[id]
	if !ok {
		return nil, false
	}
	w.lastUsed = m.now()
	return w.runner, true
}

func (m *widgetManager) remove(id string) bool {
	m.mu.Lock()
	_, ok := m.widgets[id]
	delete(m.widgets, id)
	m.mu.Unlock()
	if ok {
		m.onClose()
	}
	return ok
}

func (m *widgetManager) len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.widgets)
}

// sweep drops idle widgets. A widget with a run in flight is kept.
func (m *widgetManager) sweep() int {
	m.mu.Lock()
	now := m.now()
	removed := 0
	for id, w := range m.widgets {
		if now.Sub(w.lastUsed) > m.ttl && !w.runner.Running() {
			delete(m.widgets, id)
			removed++
		}
	}
	m.mu.Unlock()

	for i := 0; i < removed; i++ {
		m.onClose()
	}
	return removed
}

func (m *widgetManager) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.stop:
			return
		}
	}
}

func (m *widgetManager) closeAll() {
	m.once.Do(func() { close(m.stop) })

	m.mu.Lock()
	n := len(m.widgets)
	m.widgets = make(map[string]*widget)
	m.mu.Unlock()

	for i := 0; i < n; i++ {
		m.onClose()
	}
}
