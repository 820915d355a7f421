package orchestrator

import (
	"fmt"
	"sync"
	"time"

	"weeklyreport/types"
)

// State is the coarse status of the serving pipeline
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateComplete State = "complete"
	StateError    State = "error"
)

// LogEntry represents a single log line with timestamp
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// StatusResponse is the JSON response for GET /api/status
type StatusResponse struct {
	State      State            `json:"state"`
	Stage      types.Stage      `json:"stage,omitempty"`
	Logs       []LogEntry       `json:"logs"`
	LastReport *types.RunReport `json:"last_report,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// StateManager holds run state with thread-safe access
type StateManager struct {
	mu sync.RWMutex

	currentState State
	stage        types.Stage
	lastReport   *types.RunReport
	lastErr      error

	// Logs (ring buffer)
	logs    []LogEntry
	maxLogs int
	now     Clock
}

// NewStateManager creates a state manager
func NewStateManager(now Clock) *StateManager {
	if now == nil {
		now = time.Now
	}
	return &StateManager{
		currentState: StateIdle,
		logs:         make([]LogEntry, 0),
		maxLogs:      50, // Keep last 50 log entries
		now:          now,
	}
}

// AddLog adds a log entry (thread-safe)
func (m *StateManager) AddLog(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendLog(message)
}

// must hold lock
func (m *StateManager) appendLog(message string) {
	m.logs = append(m.logs, LogEntry{Timestamp: m.now(), Message: message})
	if len(m.logs) > m.maxLogs {
		m.logs = m.logs[len(m.logs)-m.maxLogs:]
	}
}

// Begin marks stage as running
func (m *StateManager) Begin(stage types.Stage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentState = StateRunning
	m.stage = stage
	m.lastErr = nil
	m.appendLog(fmt.Sprintf("Started %s", stage))
}

// Finish records the outcome of the active run
func (m *StateManager) Finish(report *types.RunReport, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stage := m.stage
	m.lastReport = report
	m.stage = ""
	if err != nil {
		m.currentState = StateError
		m.lastErr = err
		m.appendLog(fmt.Sprintf("Error: %v", err))
		return
	}
	m.currentState = StateComplete
	m.appendLog(fmt.Sprintf("Finished %s", stage))
}

// GetState gets the current state (thread-safe)
func (m *StateManager) GetState() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentState
}

// GetStatus returns a snapshot of the current state (thread-safe)
func (m *StateManager) GetStatus() StatusResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()

	resp := StatusResponse{
		State:      m.currentState,
		Stage:      m.stage,
		Logs:       append([]LogEntry{}, m.logs...), // Copy slice
		LastReport: m.lastReport,
	}
	if m.lastErr != nil {
		resp.Error = m.lastErr.Error()
	}
	return resp
}
