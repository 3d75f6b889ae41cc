package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE USERS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create users table
-- Version: 001

CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    name VARCHAR(255) NOT NULL,
    email VARCHAR(255) NOT NULL UNIQUE,
    password_hash TEXT NOT NULL DEFAULT '',
    instrument VARCHAR(100) NOT NULL DEFAULT '',
    section VARCHAR(50) NOT NULL DEFAULT '',
    role VARCHAR(20) NOT NULL DEFAULT 'personal',
    teacher_code VARCHAR(6),
    teacher_id UUID REFERENCES users(id) ON DELETE SET NULL,
    share_practice BOOLEAN NOT NULL DEFAULT FALSE,
    ensemble_id UUID,
    weekly_goal_minutes INTEGER NOT NULL DEFAULT 300,

    -- Gamification counters
    streak_count INTEGER NOT NULL DEFAULT 0,
    total_points INTEGER NOT NULL DEFAULT 0,
    level INTEGER NOT NULL DEFAULT 1,
    last_practice_date DATE,

    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_role CHECK (role IN ('student', 'teacher', 'personal')),
    CONSTRAINT valid_points CHECK (total_points >= 0),
    CONSTRAINT valid_streak CHECK (streak_count >= 0),
    CONSTRAINT valid_goal CHECK (weekly_goal_minutes > 0)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_teacher_code ON users(teacher_code) WHERE teacher_code IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_users_teacher_id ON users(teacher_id) WHERE teacher_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_users_ensemble_id ON users(ensemble_id) WHERE ensemble_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_users_streak ON users(streak_count) WHERE streak_count > 0;
`

const migration001Down = `
DROP TABLE IF EXISTS users CASCADE;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE PRACTICE
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create practice tasks, sessions, session links and badges
-- Version: 002

CREATE TABLE IF NOT EXISTS practice_tasks (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    title VARCHAR(255) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    category VARCHAR(30) NOT NULL,
    difficulty SMALLINT NOT NULL,
    estimated_minutes INTEGER NOT NULL,
    total_time_practiced INTEGER NOT NULL DEFAULT 0,
    practice_count INTEGER NOT NULL DEFAULT 0,
    status VARCHAR(20) NOT NULL DEFAULT 'not_started',
    readiness_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    rehearsal_id UUID,
    assigned_by UUID REFERENCES users(id) ON DELETE SET NULL,
    due_date DATE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_category CHECK (category IN ('repertoire', 'technique', 'sight_reading', 'section_work')),
    CONSTRAINT valid_task_status CHECK (status IN ('not_started', 'in_progress', 'ready')),
    CONSTRAINT valid_difficulty CHECK (difficulty BETWEEN 1 AND 5),
    CONSTRAINT valid_time CHECK (total_time_practiced >= 0)
);

CREATE INDEX IF NOT EXISTS idx_tasks_user_id ON practice_tasks(user_id, updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_tasks_rehearsal_id ON practice_tasks(rehearsal_id) WHERE rehearsal_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_tasks_status ON practice_tasks(user_id, status);

CREATE TABLE IF NOT EXISTS practice_sessions (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    start_time TIMESTAMP WITH TIME ZONE NOT NULL,
    duration_minutes INTEGER NOT NULL,
    focus_rating SMALLINT,
    progress_rating SMALLINT,
    energy_rating SMALLINT,
    notes TEXT NOT NULL DEFAULT '',
    points_earned INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_duration CHECK (duration_minutes > 0),
    CONSTRAINT valid_focus CHECK (focus_rating IS NULL OR focus_rating BETWEEN 1 AND 5),
    CONSTRAINT valid_progress CHECK (progress_rating IS NULL OR progress_rating BETWEEN 1 AND 5),
    CONSTRAINT valid_energy CHECK (energy_rating IS NULL OR energy_rating BETWEEN 1 AND 5)
);

CREATE INDEX IF NOT EXISTS idx_sessions_user_time ON practice_sessions(user_id, start_time DESC);
CREATE INDEX IF NOT EXISTS idx_sessions_start_time ON practice_sessions(start_time);

-- Join table attributing session minutes to tasks
CREATE TABLE IF NOT EXISTS session_tasks (
    session_id UUID NOT NULL REFERENCES practice_sessions(id) ON DELETE CASCADE,
    task_id UUID NOT NULL REFERENCES practice_tasks(id) ON DELETE CASCADE,
    minutes_spent INTEGER NOT NULL,

    PRIMARY KEY (session_id, task_id),
    CONSTRAINT valid_minutes CHECK (minutes_spent > 0)
);

CREATE INDEX IF NOT EXISTS idx_session_tasks_task ON session_tasks(task_id);

CREATE TABLE IF NOT EXISTS badges (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    badge_type VARCHAR(30) NOT NULL,
    earned_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT uniq_user_badge UNIQUE (user_id, badge_type)
);

CREATE INDEX IF NOT EXISTS idx_badges_user ON badges(user_id, earned_at);
`

const migration002Down = `
DROP TABLE IF EXISTS badges CASCADE;
DROP TABLE IF EXISTS session_tasks CASCADE;
DROP TABLE IF EXISTS practice_sessions CASCADE;
DROP TABLE IF EXISTS practice_tasks CASCADE;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE ENSEMBLES
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create ensembles and rehearsals
-- Version: 003

CREATE TABLE IF NOT EXISTS ensembles (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    name VARCHAR(255) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    join_code VARCHAR(8) NOT NULL UNIQUE,
    created_by UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_ensembles_join_code ON ensembles(join_code);

CREATE TABLE IF NOT EXISTS rehearsals (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    ensemble_id UUID NOT NULL REFERENCES ensembles(id) ON DELETE CASCADE,
    title VARCHAR(255) NOT NULL,
    location VARCHAR(255) NOT NULL DEFAULT '',
    scheduled_at TIMESTAMP WITH TIME ZONE NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_rehearsals_ensemble ON rehearsals(ensemble_id, scheduled_at);
`

const migration003Down = `
DROP TABLE IF EXISTS rehearsals CASCADE;
DROP TABLE IF EXISTS ensembles CASCADE;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: CREATE CHALLENGES AND NOTES
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
-- Migration: Create group challenges, completions and teacher notes
-- Version: 004

CREATE TABLE IF NOT EXISTS group_challenges (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    ensemble_id UUID NOT NULL REFERENCES ensembles(id) ON DELETE CASCADE,
    title VARCHAR(255) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    goal_type VARCHAR(30) NOT NULL,
    target_minutes INTEGER NOT NULL DEFAULT 0,
    bonus_points INTEGER NOT NULL DEFAULT 0,
    start_date DATE NOT NULL,
    end_date DATE NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'active',
    created_by UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_goal_type CHECK (goal_type IN ('individual_minutes', 'all_members_practice', 'section_competition')),
    CONSTRAINT valid_challenge_status CHECK (status IN ('active', 'completed', 'expired')),
    CONSTRAINT valid_window CHECK (end_date >= start_date)
);

CREATE INDEX IF NOT EXISTS idx_challenges_ensemble ON group_challenges(ensemble_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_challenges_active ON group_challenges(end_date) WHERE status = 'active';

CREATE TABLE IF NOT EXISTS challenge_completions (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    challenge_id UUID NOT NULL REFERENCES group_challenges(id) ON DELETE CASCADE,
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    completed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    points_awarded INTEGER NOT NULL DEFAULT 0,

    CONSTRAINT uniq_challenge_user UNIQUE (challenge_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_completions_challenge ON challenge_completions(challenge_id);

CREATE TABLE IF NOT EXISTS teacher_notes (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    teacher_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    student_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    task_id UUID REFERENCES practice_tasks(id) ON DELETE SET NULL,
    content TEXT NOT NULL,
    read_at TIMESTAMP WITH TIME ZONE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_notes_student ON teacher_notes(student_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_notes_task ON teacher_notes(task_id) WHERE task_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_notes_unread ON teacher_notes(student_id) WHERE read_at IS NULL;
`

const migration004Down = `
DROP TABLE IF EXISTS teacher_notes CASCADE;
DROP TABLE IF EXISTS challenge_completions CASCADE;
DROP TABLE IF EXISTS group_challenges CASCADE;
`

// ══════════════════════════════════════════════════════════════════════════════
// REGISTRY
// ══════════════════════════════════════════════════════════════════════════════

// GetMigrations returns the embedded migrations in version order.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_users", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_practice", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_ensembles", UpSQL: migration003Up, DownSQL: migration003Down},
		{Version: 4, Name: "create_challenges_and_notes", UpSQL: migration004Up, DownSQL: migration004Down},
	}
}
