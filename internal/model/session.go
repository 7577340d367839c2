package model

import "time"

// SessionStatus is the lifecycle state of a refresh-token session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "ACTIVE"
	SessionRefreshed SessionStatus = "REFRESHED"
	SessionRevoked   SessionStatus = "REVOKED"
	SessionExpired   SessionStatus = "EXPIRED"
)

// Terminal reports whether no further transition is allowed from s.
func (s SessionStatus) Terminal() bool {
	return s != SessionActive
}

// UserSession models an entry in the `user_sessions` table.  Only the
// SHA-256 hash of the raw refresh token is kept; the raw value is handed
// to the client and never persisted.
//
// Fields:
//  ID               – primary key.
//  UserID           – owning user account.
//  SessionID        – random identifier embedded in the refresh token.
//  RefreshTokenHash – base64(SHA-256(raw refresh token)), unique.
//  CreatedAt        – row creation time.
//  IssuedAt         – when the refresh token was minted.
//  ExpiresAt        – when the refresh token stops being accepted.
//  Status           – ACTIVE, REFRESHED, REVOKED or EXPIRED.
//  IPAddress        – client address recorded at login.
//  UserAgent        – client user agent recorded at login.
type UserSession struct {
	ID               uint64        `json:"id"`
	UserID           uint64        `json:"userId"`
	SessionID        string        `json:"sessionId"`
	RefreshTokenHash string        `json:"-"`
	CreatedAt        time.Time     `json:"createdAt"`
	IssuedAt         time.Time     `json:"issuedAt"`
	ExpiresAt        time.Time     `json:"expiresAt"`
	Status           SessionStatus `json:"status"`
	IPAddress        string        `json:"ipAddress"`
	UserAgent        string        `json:"userAgent"`
}
