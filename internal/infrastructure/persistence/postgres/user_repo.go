package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/practicebeats/practice-hub/internal/domain/shared"
	"github.com/practicebeats/practice-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// UserRepository implements user.Repository for PostgreSQL.
type UserRepository struct {
	conn *Connection
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(conn *Connection) *UserRepository {
	return &UserRepository{conn: conn}
}

const userColumns = `
	id, name, email, password_hash, instrument, section, role,
	teacher_code, teacher_id, share_practice, ensemble_id, weekly_goal_minutes,
	streak_count, total_points, level, last_practice_date,
	created_at, updated_at
`

// Create creates a new user.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (
			id, name, email, password_hash, instrument, section, role,
			teacher_code, teacher_id, share_practice, ensemble_id, weekly_goal_minutes,
			streak_count, total_points, level, last_practice_date,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err := r.conn.Exec(ctx, query,
		u.ID,
		u.Name,
		u.Email.String(),
		u.PasswordHash,
		u.Instrument,
		u.Section,
		string(u.Role),
		nullIfEmpty(u.TeacherCode.String()),
		nullIfEmpty(u.TeacherID),
		u.SharePracticeWithTeacher,
		nullIfEmpty(u.EnsembleID),
		u.WeeklyGoalMinutes,
		u.Practice.StreakCount,
		u.Practice.TotalPoints,
		u.Practice.Level,
		u.Practice.LastPracticeDate,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID returns a user by internal ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.conn.QueryRow(ctx, query, id))
}

// GetByEmail returns a user by normalized email.
func (r *UserRepository) GetByEmail(ctx context.Context, email shared.Email) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(r.conn.QueryRow(ctx, query, email.Normalize().String()))
}

// GetByTeacherCode returns the teacher account owning the given code.
func (r *UserRepository) GetByTeacherCode(ctx context.Context, code shared.JoinCode) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE teacher_code = $1`
	u, err := r.scanUser(r.conn.QueryRow(ctx, query, code.String()))
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.ErrTeacherNotFound
		}
		return nil, err
	}
	return u, nil
}

// Update persists all mutable fields of the user.
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	query := `
		UPDATE users SET
			name = $2,
			password_hash = $3,
			instrument = $4,
			section = $5,
			role = $6,
			teacher_code = $7,
			teacher_id = $8,
			share_practice = $9,
			ensemble_id = $10,
			weekly_goal_minutes = $11,
			streak_count = $12,
			total_points = $13,
			level = $14,
			last_practice_date = $15,
			updated_at = $16
		WHERE id = $1
	`

	tag, err := r.conn.Exec(ctx, query,
		u.ID,
		u.Name,
		u.PasswordHash,
		u.Instrument,
		u.Section,
		string(u.Role),
		nullIfEmpty(u.TeacherCode.String()),
		nullIfEmpty(u.TeacherID),
		u.SharePracticeWithTeacher,
		nullIfEmpty(u.EnsembleID),
		u.WeeklyGoalMinutes,
		u.Practice.StreakCount,
		u.Practice.TotalPoints,
		u.Practice.Level,
		u.Practice.LastPracticeDate,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrUserNotFound
	}

	return nil
}

// ListByEnsemble returns every member of an ensemble.
func (r *UserRepository) ListByEnsemble(ctx context.Context, ensembleID string) ([]*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ensemble_id = $1 ORDER BY name`
	return r.queryUsers(ctx, query, ensembleID)
}

// ListByTeacher returns every student linked to a teacher.
func (r *UserRepository) ListByTeacher(ctx context.Context, teacherID string) ([]*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE teacher_id = $1 ORDER BY name`
	return r.queryUsers(ctx, query, teacherID)
}

// ListWithActiveStreaks returns users whose streak is at least minStreak.
func (r *UserRepository) ListWithActiveStreaks(ctx context.Context, minStreak int) ([]*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE streak_count >= $1 ORDER BY streak_count DESC`
	return r.queryUsers(ctx, query, minStreak)
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning
// ─────────────────────────────────────────────────────────────────────────────

func (r *UserRepository) queryUsers(ctx context.Context, query string, args ...interface{}) ([]*user.User, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*user.User
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

func (r *UserRepository) scanUser(row pgx.Row) (*user.User, error) {
	var (
		u           user.User
		email       string
		role        string
		teacherCode *string
		teacherID   *string
		ensembleID  *string
		lastDate    *time.Time
	)

	err := row.Scan(
		&u.ID,
		&u.Name,
		&email,
		&u.PasswordHash,
		&u.Instrument,
		&u.Section,
		&role,
		&teacherCode,
		&teacherID,
		&u.SharePracticeWithTeacher,
		&ensembleID,
		&u.WeeklyGoalMinutes,
		&u.Practice.StreakCount,
		&u.Practice.TotalPoints,
		&u.Practice.Level,
		&lastDate,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	u.Email = shared.Email(email)
	u.Role = user.Role(role)
	if teacherCode != nil {
		u.TeacherCode = shared.JoinCode(*teacherCode)
	}
	if teacherID != nil {
		u.TeacherID = *teacherID
	}
	if ensembleID != nil {
		u.EnsembleID = *ensembleID
	}
	u.Practice.LastPracticeDate = lastDate

	return &u, nil
}

// nullIfEmpty maps the domain's empty-string "no value" to SQL NULL so that
// partial unique indexes and foreign keys behave.
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
