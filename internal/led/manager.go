package led

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/smazurov/camseq/internal/events"
)

// Manager turns capture events into LED patterns: the tally LED is solid
// while idle, beats while a capture runs and blinks after a session
// failure until the next capture starts. The flash LED, when present, lights
// while the flash is in torch mode.
type Manager struct {
	controller Controller
	eventBus   *events.Bus
	logger     *slog.Logger
	hasFlash   bool

	mu          sync.Mutex
	unsubscribe []func()
	pattern     string
	faulted     bool
}

// NewManager creates a manager driving controller from eventBus.
func NewManager(controller Controller, eventBus *events.Bus, logger *slog.Logger) *Manager {
	return &Manager{
		controller: controller,
		eventBus:   eventBus,
		logger:     logger,
		hasFlash:   slices.Contains(controller.Available(), RoleFlash),
	}
}

// Start sets the idle pattern and subscribes to capture events.
func (m *Manager) Start() {
	m.setTally(PatternSolid)

	m.mu.Lock()
	m.unsubscribe = []func(){
		m.eventBus.Subscribe(m.onStateChanged),
		m.eventBus.Subscribe(m.onSessionError),
		m.eventBus.Subscribe(m.onFlashChanged),
	}
	m.mu.Unlock()
	m.logger.Info("LED manager started", "flash_led", m.hasFlash)
}

// Stop unsubscribes and switches the tally off.
func (m *Manager) Stop() {
	m.mu.Lock()
	unsubs := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	if err := m.controller.Set(RoleTally, false, ""); err != nil {
		m.logger.Debug("Failed to switch tally LED off", "error", err)
	}
	m.logger.Info("LED manager stopped")
}

// Pattern returns the tally pattern last applied.
func (m *Manager) Pattern() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pattern
}

// GetController returns the underlying LED controller for direct API access.
func (m *Manager) GetController() Controller {
	return m.controller
}

func (m *Manager) onStateChanged(e events.CaptureStateChangedEvent) {
	if !e.Capturing() {
		m.setTally(PatternSolid)
		return
	}
	m.mu.Lock()
	m.faulted = false
	m.mu.Unlock()
	m.setTally(PatternHeartbeat)
}

func (m *Manager) onSessionError(e events.SessionErrorEvent) {
	m.mu.Lock()
	m.faulted = true
	m.mu.Unlock()

	m.logger.Debug("Session failed, tally LED blinking", "code", e.Code)
	m.setTally(PatternBlink)
}

func (m *Manager) onFlashChanged(e events.FlashModeChangedEvent) {
	if !m.hasFlash {
		return
	}
	torch := e.Flash == "torch"
	if err := m.controller.Set(RoleFlash, torch, PatternSolid); err != nil {
		m.logger.Warn("Failed to set flash LED", "error", err)
	}
}

func (m *Manager) setTally(pattern string) {
	m.mu.Lock()
	if m.faulted && pattern != PatternBlink {
		m.mu.Unlock()
		return
	}
	if m.pattern == pattern {
		m.mu.Unlock()
		return
	}
	m.pattern = pattern
	m.mu.Unlock()

	if err := m.controller.Set(RoleTally, true, pattern); err != nil {
		m.logger.Warn("Failed to set tally LED", "pattern", pattern, "error", err)
		return
	}
	m.logger.Debug("Tally LED updated", "pattern", pattern)
}
