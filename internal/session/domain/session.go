package domain

import "time"

// Session binds a user, a device, and the currently valid token pair.
// At most one session may be active per (UserID, DeviceID) at a time; the
// manager enforces this by deactivating prior sessions for the device
// before inserting a new one.
type Session struct {
	ID             string
	UserID         string
	DeviceID       string
	AccessToken    string
	RefreshToken   string
	UserAgent      string // optional
	IPAddress      string // optional
	IsActive       bool
	LastActivityAt *time.Time // nil until first validated use
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
