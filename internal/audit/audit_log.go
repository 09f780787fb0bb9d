// Package audit records admin and Reconciler actions on VMs and candidates for
// accountability.
package audit

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/payperplay/hosting/internal/monitoring"
	"github.com/payperplay/hosting/pkg/logger"
)

// ActionType identifies the kind of action being audited.
type ActionType string

const (
	ActionVMTerminate        ActionType = "vm_terminate"
	ActionVMLaunch           ActionType = "vm_launch"
	ActionCandidateAdd       ActionType = "candidate_add"
	ActionCandidateDeactivate ActionType = "candidate_deactivate"
	ActionQuotaChange        ActionType = "quota_change"
	ActionSettingsChange     ActionType = "settings_change"
)

// Entry is a single audit log record.
type Entry struct {
	Timestamp     time.Time              `json:"timestamp"`
	Action        ActionType             `json:"action"`
	InstanceID    string                 `json:"instanceId,omitempty"`
	CandidateEmail string                `json:"candidateEmail,omitempty"`
	Reason        string                 `json:"reason"`
	StateSnapshot map[string]interface{} `json:"stateSnapshot,omitempty"`
	DecisionBy    string                 `json:"decisionBy"` // email of the admin, or "reconciler"
	Result        string                 `json:"result"`     // "success", "rejected", "failed"
	Error         string                 `json:"error,omitempty"`
}

// Logger is a bounded in-memory ring buffer of audit entries, mirrored to the
// structured logger for durable storage (§6.1 supplemented admin audit endpoint).
type Logger struct {
	entries []Entry
	mu      sync.RWMutex
	maxSize int
}

// NewLogger creates an audit logger retaining at most maxSize entries in memory.
func NewLogger(maxSize int) *Logger {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &Logger{entries: make([]Entry, 0, maxSize), maxSize: maxSize}
}

// Record appends an entry, trimming to the oldest-first window once maxSize is exceeded.
func (l *Logger) Record(entry Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry.Timestamp = time.Now().UTC()
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.maxSize {
		l.entries = l.entries[len(l.entries)-l.maxSize:]
	}

	fields := map[string]interface{}{
		"action":         entry.Action,
		"instanceId":     entry.InstanceID,
		"candidateEmail": entry.CandidateEmail,
		"reason":         entry.Reason,
		"decisionBy":     entry.DecisionBy,
		"result":         entry.Result,
	}
	if len(entry.StateSnapshot) > 0 {
		snapshotJSON, _ := json.Marshal(entry.StateSnapshot)
		fields["stateSnapshot"] = string(snapshotJSON)
	}
	if entry.Error != "" {
		fields["error"] = entry.Error
	}

	switch entry.Result {
	case "rejected":
		logger.Warn("audit: "+string(entry.Action)+" rejected", fields)
	case "failed":
		logger.Error("audit: "+string(entry.Action)+" failed", nil, fields)
	default:
		logger.Info("audit: "+string(entry.Action), fields)
	}
}

// RecordVMTermination records a VM termination, whether user-initiated or
// Reconciler-driven.
func (l *Logger) RecordVMTermination(instanceID, candidateEmail, reason, decisionBy string, err error) {
	entry := Entry{
		Action:         ActionVMTerminate,
		InstanceID:     instanceID,
		CandidateEmail: candidateEmail,
		Reason:         reason,
		DecisionBy:     decisionBy,
		Result:         "success",
	}
	if err != nil {
		entry.Result = "failed"
		entry.Error = err.Error()
	} else {
		monitoring.VMTerminationsTotal.WithLabelValues(reason).Inc()
	}
	l.Record(entry)
}

// GetRecent returns the n most recent entries, or all of them if n <= 0 or n exceeds
// the buffer's length.
func (l *Logger) GetRecent(n int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	start := len(l.entries) - n
	result := make([]Entry, n)
	copy(result, l.entries[start:])
	return result
}

// Stats summarizes the buffer's contents for the admin audit endpoint.
func (l *Logger) Stats() map[string]interface{} {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := map[string]interface{}{
		"totalEntries": len(l.entries),
		"maxSize":      l.maxSize,
	}
	byAction := make(map[ActionType]int)
	byResult := make(map[string]int)
	for _, entry := range l.entries {
		byAction[entry.Action]++
		byResult[entry.Result]++
	}
	stats["byAction"] = byAction
	stats["byResult"] = byResult
	if len(l.entries) > 0 {
		last := l.entries[len(l.entries)-1]
		stats["lastAction"] = last.Action
		stats["lastTimestamp"] = last.Timestamp
	}
	return stats
}

// String renders a human-readable summary, used by the admin CLI / debug logging.
func (l *Logger) String() string {
	statsJSON, _ := json.MarshalIndent(l.Stats(), "", "  ")
	return fmt.Sprintf("Audit Log Stats:\n%s", string(statsJSON))
}
