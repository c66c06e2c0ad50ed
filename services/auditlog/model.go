package auditlog

import (
	"encoding/json"
	"time"
	"unicode/utf8"

	"gorm.io/datatypes"
)

type Action string

const (
	ActionActivate   Action = "ACTIVATE"
	ActionVerify     Action = "VERIFY"
	ActionReset      Action = "RESET"
	ActionDeactivate Action = "DEACTIVATE"
	ActionReactivate Action = "REACTIVATE"
)

// Entry is one attempt against the registry. The license key is stored as
// submitted (normalized), there is no foreign key so unknown keys are kept too.
type Entry struct {
	ID            uint64         `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	LicenseKey    string         `gorm:"column:license_key;size:64;index" json:"license_key"`
	MachineID     string         `gorm:"column:machine_id;size:255" json:"machine_id"`
	SourceAddress string         `gorm:"column:source_address;size:64" json:"source_address"`
	Action        Action         `gorm:"column:action;size:16" json:"action"`
	Succeeded     bool           `gorm:"column:succeeded" json:"succeeded"`
	Message       string         `gorm:"column:message;size:255" json:"message"`
	Metadata      datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt     time.Time      `gorm:"column:created_at;index" json:"created_at"`
}

func (Entry) TableName() string {
	return "activation_logs"
}

// Column widths of the string fields, kept in step with the gorm tags.
const (
	keyWidth     = 64
	machineWidth = 255
	addressWidth = 64
	messageWidth = 255
)

const truncatedMarker = "..."

// fitColumns shortens caller supplied values that would overflow their
// column, so postgres and mysql accept the row instead of rejecting it.
func (e *Entry) fitColumns() {
	e.LicenseKey = truncate(e.LicenseKey, keyWidth)
	e.MachineID = truncate(e.MachineID, machineWidth)
	e.SourceAddress = truncate(e.SourceAddress, addressWidth)
	e.Message = truncate(e.Message, messageWidth)
}

// truncate cuts s to at most width characters, ending in truncatedMarker
// when it had to cut.
func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	runes := []rune(s)
	return string(runes[:width-utf8.RuneCountInString(truncatedMarker)]) + truncatedMarker
}

// Source describes where a request came from.
type Source struct {
	Address   string
	UserAgent string
	RequestID string
}

// Metadata encodes the non-column details of an attempt.
func (s Source) Metadata(extra map[string]string) datatypes.JSON {
	m := make(map[string]string, len(extra)+2)
	if s.UserAgent != "" {
		m["user_agent"] = s.UserAgent
	}
	if s.RequestID != "" {
		m["request_id"] = s.RequestID
	}
	for k, v := range extra {
		if v != "" {
			m[k] = v
		}
	}
	if len(m) == 0 {
		return nil
	}

	b, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
