package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/database"
	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// SessionRepo persists refresh-token sessions (user_sessions).  Rows are
// keyed for lookup by the hash of the raw refresh token.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

const sessionColumns = `id, user_id, session_id, refresh_token_hash, created_at, issued_at,
	expires_at, status, ip_address, user_agent`

func scanSession(row interface{ Scan(...any) error }) (*model.UserSession, error) {
	var (
		s         model.UserSession
		ip, agent sql.NullString
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.SessionID, &s.RefreshTokenHash, &s.CreatedAt,
		&s.IssuedAt, &s.ExpiresAt, &s.Status, &ip, &agent); err != nil {
		return nil, err
	}
	s.IPAddress = ip.String
	s.UserAgent = agent.String
	return &s, nil
}

func insertSession(ctx context.Context, db DBTX, s *model.UserSession) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO user_sessions (user_id, session_id, refresh_token_hash, created_at, issued_at,
		 expires_at, status, ip_address, user_agent) VALUES (?,?,?,?,?,?,?,?,?)`,
		s.UserID, s.SessionID, s.RefreshTokenHash, s.CreatedAt.UTC(), s.IssuedAt.UTC(),
		s.ExpiresAt.UTC(), string(s.Status), nullString(s.IPAddress), nullString(s.UserAgent))
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// Create inserts a session row and sets s.ID.  A repeated token hash
// yields ErrDuplicate.
func (r *SessionRepo) Create(ctx context.Context, s *model.UserSession) error {
	return insertSession(ctx, r.DB, s)
}

// FindByHash returns the session for a token hash in any status.
func (r *SessionRepo) FindByHash(ctx context.Context, hash string) (*model.UserSession, error) {
	s, err := scanSession(r.DB.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM user_sessions WHERE refresh_token_hash=? LIMIT 1", hash))
	return s, translate(err)
}

// FindActiveByHash returns the session for a token hash only when ACTIVE.
func (r *SessionRepo) FindActiveByHash(ctx context.Context, hash string) (*model.UserSession, error) {
	s, err := scanSession(r.DB.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM user_sessions WHERE refresh_token_hash=? AND status=? LIMIT 1",
		hash, string(model.SessionActive)))
	return s, translate(err)
}

// FindAllActiveForUser lists a user's ACTIVE sessions, newest first.
func (r *SessionRepo) FindAllActiveForUser(ctx context.Context, userID uint64) ([]model.UserSession, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+sessionColumns+" FROM user_sessions WHERE user_id=? AND status=? ORDER BY issued_at DESC, id DESC",
		userID, string(model.SessionActive))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.UserSession, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// CountActiveForUser counts a user's ACTIVE sessions.
func (r *SessionRepo) CountActiveForUser(ctx context.Context, userID uint64) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM user_sessions WHERE user_id=? AND status=?",
		userID, string(model.SessionActive)).Scan(&n)
	return n, err
}

// Transition moves a session from one status to another.  It reports
// false when the row was not in the expected status, which makes it safe
// to race: only one caller can win a given transition.
func (r *SessionRepo) Transition(ctx context.Context, id uint64, from, to model.SessionStatus) (bool, error) {
	return transitionSession(ctx, r.DB, id, from, to)
}

func transitionSession(ctx context.Context, db DBTX, id uint64, from, to model.SessionStatus) (bool, error) {
	res, err := db.ExecContext(ctx,
		"UPDATE user_sessions SET status=? WHERE id=? AND status=?", string(to), id, string(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RevokeAllActiveForUser marks every ACTIVE session of the user REVOKED and
// returns how many rows changed.  Calling it again changes nothing.
func (r *SessionRepo) RevokeAllActiveForUser(ctx context.Context, userID uint64) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE user_sessions SET status=? WHERE user_id=? AND status=?",
		string(model.SessionRevoked), userID, string(model.SessionActive))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SweepExpired marks ACTIVE sessions whose expires_at is before now as
// EXPIRED and returns how many rows changed.
func (r *SessionRepo) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE user_sessions SET status=? WHERE status=? AND expires_at < ?",
		string(model.SessionExpired), string(model.SessionActive), now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Rotate consumes the ACTIVE session oldID (ACTIVE -> REFRESHED) and
// inserts next in the same transaction.  If the old session is no longer
// ACTIVE, nothing is written and ErrConflict is returned: of two
// concurrent rotations of one token exactly one commits.
func (r *SessionRepo) Rotate(ctx context.Context, oldID uint64, next *model.UserSession) error {
	return database.WithTx(ctx, r.DB, nil, func(tx *sql.Tx) error {
		ok, err := transitionSession(ctx, tx, oldID, model.SessionActive, model.SessionRefreshed)
		if err != nil {
			return err
		}
		if !ok {
			return ErrConflict
		}
		return insertSession(ctx, tx, next)
	})
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
