package license

import "time"

// License is a key bound to at most one machine. ExpiresAt is a civil date
// stored as midnight UTC.
type License struct {
	ID          uint64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	LicenseKey  string     `gorm:"column:license_key;size:64;uniqueIndex;not null" json:"license_key"`
	ClientName  string     `gorm:"column:client_name;size:255;not null" json:"client_name"`
	ClientEmail string     `gorm:"column:client_email;size:255" json:"client_email,omitempty"`
	MachineID   *string    `gorm:"column:machine_id;size:255;index" json:"machine_id"`
	ActivatedAt *time.Time `gorm:"column:activated_at" json:"activated_at"`
	ExpiresAt   time.Time  `gorm:"column:expires_at;type:date;not null" json:"expires_at"`
	IsActive    bool       `gorm:"column:is_active;default:true;not null" json:"is_active"`
	Notes       string     `gorm:"column:notes;type:text" json:"notes,omitempty"`
	CreatedAt   time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (License) TableName() string {
	return "licenses"
}

func (l *License) BoundTo() string {
	if l.MachineID == nil {
		return ""
	}
	return *l.MachineID
}

// CivilDate truncates t to its calendar date, expressed as midnight UTC.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysRemaining counts whole days from today until expiresAt, both civil
// dates. It is zero on the expiry day and negative afterwards.
func DaysRemaining(today, expiresAt time.Time) int {
	diff := CivilDate(expiresAt).Sub(CivilDate(today))
	return int(diff / (24 * time.Hour))
}

// Usable reports whether the license may be used on the given civil date.
func (l *License) Usable(today time.Time) bool {
	return l.IsActive && !l.Expired(today)
}

func (l *License) Expired(today time.Time) bool {
	return CivilDate(today).After(CivilDate(l.ExpiresAt))
}
