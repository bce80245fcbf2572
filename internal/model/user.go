package model

import "time"

// Role names carried in the JWT "role" claim.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

const (
	// BlacklistDuration is how long a blacklisted user cannot book.
	BlacklistDuration = 48 * time.Hour
	// NoShowThreshold is the no-show count that triggers blacklisting.
	NoShowThreshold = 3
)

// User represents an application user as stored in the `users` table.
// PasswordHash never leaves the service; handlers serialize the struct
// directly, so the json tag hides it.
//
// Fields:
//
//	ID                 – UUID primary key.
//	Username           – unique login name.
//	PasswordHash       – bcrypt hash.
//	NoShowCount        – no-shows since the last blacklist release.
//	IsBlacklisted      – whether booking is currently suspended.
//	BlacklistStartTime – when the suspension began (UTC), nil when clear.
//	CreatedAt          – creation timestamp.
type User struct {
	ID                 string     `json:"id"`                             // users.id
	Username           string     `json:"username"`                       // users.username
	PasswordHash       string     `json:"-"`                              // users.password_hash
	NoShowCount        int        `json:"no_show_count"`                  // users.no_show_count
	IsBlacklisted      bool       `json:"is_blacklisted"`                 // users.is_blacklisted
	BlacklistStartTime *time.Time `json:"blacklist_start_time,omitempty"` // users.blacklist_start_time (nullable)
	CreatedAt          time.Time  `json:"created_at"`                     // users.created_at
}

// RecordNoShow bumps the no-show counter and blacklists the user once the
// threshold is reached.  It returns true when this call started a new
// blacklist period.
func (u *User) RecordNoShow(now time.Time) bool {
	u.NoShowCount++
	if u.NoShowCount >= NoShowThreshold && !u.IsBlacklisted {
		u.Blacklist(now)
		return true
	}
	return false
}

// Blacklist starts a suspension at now.
func (u *User) Blacklist(now time.Time) {
	t := now.UTC()
	u.IsBlacklisted = true
	u.BlacklistStartTime = &t
}

// ClearBlacklist lifts the suspension and resets the no-show counter.
func (u *User) ClearBlacklist() {
	u.IsBlacklisted = false
	u.BlacklistStartTime = nil
	u.NoShowCount = 0
}

// BlacklistRemaining is start + BlacklistDuration - now, floored at zero.
func (u User) BlacklistRemaining(now time.Time) time.Duration {
	if !u.IsBlacklisted || u.BlacklistStartTime == nil {
		return 0
	}
	rem := u.BlacklistStartTime.Add(BlacklistDuration).Sub(now)
	if rem < 0 {
		return 0
	}
	return rem
}

// BlacklistExpired reports whether a blacklisted user is due for release.
func (u User) BlacklistExpired(now time.Time) bool {
	if !u.IsBlacklisted || u.BlacklistStartTime == nil {
		return false
	}
	return now.After(u.BlacklistStartTime.Add(BlacklistDuration))
}

// Admin is an operator account stored in the `admins` table.
type Admin struct {
	ID           string    `json:"id"`         // admins.id
	Username     string    `json:"username"`   // admins.username
	PasswordHash string    `json:"-"`          // admins.password_hash
	CreatedAt    time.Time `json:"created_at"` // admins.created_at
}
