// Package audit records every dispatched tool call in the instance
// database. Argument payloads are redacted before they touch disk:
// credential-bearing keys are masked and oversized string values are
// cut, so the trail is safe to export and ship.
package audit

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"reposcope/internal/storage"
)

// sensitiveKeys are masked wherever they appear in an argument tree.
var sensitiveKeys = map[string]bool{
	"api_key":       true,
	"apikey":        true,
	"authorization": true,
	"Authorization": true,
	"token":         true,
	"access_token":  true,
	"password":      true,
	"secret":        true,
}

// maxValueChars caps any single string value in the recorded arguments.
const maxValueChars = 4000

// Event is one recorded tool invocation.
type Event struct {
	ID         int64  `json:"id"`
	RunID      string `json:"runId"`
	ProjectID  int64  `json:"projectId"`
	Tool       string `json:"tool"`
	Arguments  string `json:"arguments"`
	OK         bool   `json:"ok"`
	ErrorCode  string `json:"errorCode,omitempty"`
	DurationMs int64  `json:"durationMs"`
	CreatedAt  string `json:"createdAt"`
}

// Trail appends tool-call events for one server run.
type Trail struct {
	db      *storage.DB
	logger  *slog.Logger
	runID   string
	enabled bool
}

// NewTrail creates a trail with a fresh run identifier. A nil db
// disables recording.
func NewTrail(db *storage.DB, logger *slog.Logger, enabled bool) *Trail {
	return &Trail{
		db:      db,
		logger:  logger,
		runID:   uuid.NewString(),
		enabled: enabled && db != nil,
	}
}

// RunID returns this trail's run identifier.
func (t *Trail) RunID() string {
	return t.runID
}

// Record stores one tool call. Recording failures are logged and
// swallowed; the tool result must not depend on the audit write.
func (t *Trail) Record(projectID int64, tool string, args map[string]interface{}, ok bool, errorCode string, duration time.Duration) {
	if !t.enabled {
		return
	}
	argsJSON, err := json.Marshal(Redact(args))
	if err != nil {
		argsJSON = []byte("{}")
	}
	_, err = t.db.Exec(
		`INSERT INTO audit_events (run_id, project_id, tool, arguments, ok, error_code, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.runID, projectID, tool, string(argsJSON),
		boolToInt(ok), errorCode, duration.Milliseconds(),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		t.logger.Error("audit record failed", "tool", tool, "error", err)
	}
}

// Purge deletes events older than the retention window.
func (t *Trail) Purge(retentionDays int) error {
	if !t.enabled || retentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Format(time.RFC3339)
	_, err := t.db.Exec(`DELETE FROM audit_events WHERE created_at < ?`, cutoff)
	return err
}

// Events returns recorded events, oldest first. A zero runID returns
// all runs.
func Events(db *storage.DB, runID string) ([]Event, error) {
	query := `SELECT id, run_id, project_id, tool, arguments, ok, error_code, duration_ms, created_at
	          FROM audit_events`
	args := []interface{}{}
	if runID != "" {
		query += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	query += ` ORDER BY id`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var ok int
		if err := rows.Scan(&e.ID, &e.RunID, &e.ProjectID, &e.Tool, &e.Arguments,
			&ok, &e.ErrorCode, &e.DurationMs, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.OK = ok != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

// Redact walks an argument tree, masking sensitive keys and truncating
// long string values.
func Redact(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, inner := range val {
			if sensitiveKeys[k] {
				out[k] = "***"
			} else {
				out[k] = Redact(inner)
			}
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, inner := range val {
			out[i] = Redact(inner)
		}
		return out
	case string:
		if len(val) > maxValueChars {
			return val[:maxValueChars] + "...(truncated)"
		}
		return val
	default:
		return v
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
