// Package notify collects user-facing notices and progress indicators.
// The realtime channel and the session coordinator write here; the management
// API reads. Nothing in this package blocks or performs I/O.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/storyforge-ai/workflow-agent/internal/metrics"
)

// Level classifies a notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a transient user-facing message.
type Notice struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Indicator is a dismissible progress indicator keyed by a fixed id, updated
// in place as progress events arrive.
type Indicator struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Completed int       `json:"completed"`
	Total     int       `json:"total"`
	UpdatedAt time.Time `json:"updated_at"`
}

// maxNotices bounds the retained notice history.
const maxNotices = 100

// Center is the process-wide notification hub.
type Center struct {
	mu         sync.RWMutex
	notices    []Notice
	indicators map[string]*Indicator
	lastError  string
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewCenter creates an empty notification center.
func NewCenter() *Center {
	return &Center{
		indicators: make(map[string]*Indicator),
		now:        time.Now,
	}
}

// SetMetrics attaches a metrics collector. A nil collector disables recording.
func (c *Center) SetMetrics(m *metrics.Metrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = m
}

func (c *Center) push(level Level, message string) Notice {
	c.metrics.RecordNotice(string(level))
	n := Notice{
		ID:        uuid.New().String(),
		Level:     level,
		Message:   message,
		CreatedAt: c.now(),
	}
	c.notices = append(c.notices, n)
	if len(c.notices) > maxNotices {
		c.notices = c.notices[len(c.notices)-maxNotices:]
	}
	return n
}

// Info surfaces an informational notice.
func (c *Center) Info(message string) Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.push(LevelInfo, message)
}

// Success surfaces a completion notice.
func (c *Center) Success(message string) Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.push(LevelSuccess, message)
}

// Warning surfaces a warning notice.
func (c *Center) Warning(message string) Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.push(LevelWarning, message)
}

// Error surfaces an error notice and records it as the process-wide error.
func (c *Center) Error(message string) Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastError = message
	return c.push(LevelError, message)
}

// LastError returns the most recent process-wide error message, or "".
func (c *Center) LastError() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastError
}

// ClearError clears the process-wide error.
func (c *Center) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastError = ""
}

// Progress creates or updates-in-place the indicator with the given id.
func (c *Center) Progress(id, label string, completed, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ind, ok := c.indicators[id]
	if !ok {
		ind = &Indicator{ID: id, Label: label}
		c.indicators[id] = ind
	}
	if label != "" {
		ind.Label = label
	}
	ind.Completed = completed
	ind.Total = total
	ind.UpdatedAt = c.now()
}

// Dismiss removes the indicator with the given id. Idempotent.
func (c *Center) Dismiss(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.indicators, id)
}

// Complete dismisses the indicator and replaces it with a completion notice.
func (c *Center) Complete(id, message string) Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.indicators, id)
	return c.push(LevelSuccess, message)
}

// Notices returns a copy of the retained notices, oldest first.
func (c *Center) Notices() []Notice {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Notice(nil), c.notices...)
}

// Indicators returns a copy of the live progress indicators.
func (c *Center) Indicators() []Indicator {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Indicator, 0, len(c.indicators))
	for _, ind := range c.indicators {
		out = append(out, *ind)
	}
	return out
}

// Indicator returns the indicator with the given id, if present.
func (c *Center) Indicator(id string) (Indicator, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if ind, ok := c.indicators[id]; ok {
		return *ind, true
	}
	return Indicator{}, false
}
