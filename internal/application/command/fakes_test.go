package command

// In-memory repository fakes shared by the command tests.

import (
	"context"
	"time"

	"github.com/practicebeats/practice-hub/internal/domain/badge"
	"github.com/practicebeats/practice-hub/internal/domain/challenge"
	"github.com/practicebeats/practice-hub/internal/domain/ensemble"
	"github.com/practicebeats/practice-hub/internal/domain/note"
	"github.com/practicebeats/practice-hub/internal/domain/session"
	"github.com/practicebeats/practice-hub/internal/domain/shared"
	"github.com/practicebeats/practice-hub/internal/domain/task"
	"github.com/practicebeats/practice-hub/internal/domain/user"
)

// ─── users ───

type fakeUserRepo struct {
	users   map[string]*user.User
	updates int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*user.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, u *user.User) error {
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return shared.ErrEmailTaken
		}
	}
	r.users[u.ID] = u.Clone()
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*user.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return u.Clone(), nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email shared.Email) (*user.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u.Clone(), nil
		}
	}
	return nil, shared.ErrUserNotFound
}

func (r *fakeUserRepo) GetByTeacherCode(_ context.Context, code shared.JoinCode) (*user.User, error) {
	for _, u := range r.users {
		if u.TeacherCode != "" && u.TeacherCode == code {
			return u.Clone(), nil
		}
	}
	return nil, shared.ErrTeacherNotFound
}

func (r *fakeUserRepo) Update(_ context.Context, u *user.User) error {
	if _, ok := r.users[u.ID]; !ok {
		return shared.ErrUserNotFound
	}
	r.users[u.ID] = u.Clone()
	r.updates++
	return nil
}

func (r *fakeUserRepo) ListByEnsemble(_ context.Context, ensembleID string) ([]*user.User, error) {
	var out []*user.User
	for _, u := range r.users {
		if u.EnsembleID == ensembleID {
			out = append(out, u.Clone())
		}
	}
	return out, nil
}

func (r *fakeUserRepo) ListByTeacher(_ context.Context, teacherID string) ([]*user.User, error) {
	var out []*user.User
	for _, u := range r.users {
		if u.TeacherID == teacherID {
			out = append(out, u.Clone())
		}
	}
	return out, nil
}

func (r *fakeUserRepo) ListWithActiveStreaks(_ context.Context, minStreak int) ([]*user.User, error) {
	var out []*user.User
	for _, u := range r.users {
		if u.Practice.StreakCount >= minStreak {
			out = append(out, u.Clone())
		}
	}
	return out, nil
}

// ─── sessions ───

type fakeSessionRepo struct {
	sessions map[string]*session.PracticeSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*session.PracticeSession)}
}

func (r *fakeSessionRepo) Create(_ context.Context, s *session.PracticeSession) error {
	r.sessions[s.ID] = s
	return nil
}

func (r *fakeSessionRepo) GetByID(_ context.Context, id string) (*session.PracticeSession, error) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, shared.ErrSessionNotFound
	}
	return s, nil
}

func (r *fakeSessionRepo) Update(_ context.Context, s *session.PracticeSession) error {
	if _, ok := r.sessions[s.ID]; !ok {
		return shared.ErrSessionNotFound
	}
	r.sessions[s.ID] = s
	return nil
}

func (r *fakeSessionRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.sessions[id]; !ok {
		return shared.ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *fakeSessionRepo) ListByUser(_ context.Context, userID string, limit int) ([]*session.PracticeSession, error) {
	var out []*session.PracticeSession
	for _, s := range r.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeSessionRepo) ListByUserBetween(_ context.Context, userID string, from, to time.Time) ([]*session.PracticeSession, error) {
	var out []*session.PracticeSession
	for _, s := range r.sessions {
		if s.UserID == userID && !s.StartTime.Before(from) && s.StartTime.Before(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) SumBetween(_ context.Context, userIDs []string, from, to time.Time) (map[string]session.PeriodTotals, error) {
	want := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		want[id] = true
	}
	sums := make(map[string]session.PeriodTotals)
	for _, s := range r.sessions {
		if want[s.UserID] && !s.StartTime.Before(from) && s.StartTime.Before(to) {
			t := sums[s.UserID]
			t.Minutes += s.DurationMinutes
			t.Points += s.PointsEarned
			sums[s.UserID] = t
		}
	}
	return sums, nil
}

func (r *fakeSessionRepo) CountByUser(_ context.Context, userID string) (int, error) {
	count := 0
	for _, s := range r.sessions {
		if s.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (r *fakeSessionRepo) RatingsForTask(_ context.Context, taskID string) ([]session.TaskSessionRatings, error) {
	var out []session.TaskSessionRatings
	for _, s := range r.sessions {
		for _, link := range s.TaskLinks {
			if link.TaskID != taskID {
				continue
			}
			var ratings session.TaskSessionRatings
			if s.FocusRating != nil {
				v := s.FocusRating.Int()
				ratings.Focus = &v
			}
			if s.ProgressRating != nil {
				v := s.ProgressRating.Int()
				ratings.Progress = &v
			}
			if s.EnergyRating != nil {
				v := s.EnergyRating.Int()
				ratings.Energy = &v
			}
			out = append(out, ratings)
		}
	}
	return out, nil
}

// ─── tasks ───

type fakeTaskRepo struct {
	tasks map[string]*task.Task
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[string]*task.Task)}
}

func (r *fakeTaskRepo) Create(_ context.Context, t *task.Task) error {
	r.tasks[t.ID] = t
	return nil
}

func (r *fakeTaskRepo) GetByID(_ context.Context, id string) (*task.Task, error) {
	t, ok := r.tasks[id]
	if !ok {
		return nil, shared.ErrTaskNotFound
	}
	return t, nil
}

func (r *fakeTaskRepo) Update(_ context.Context, t *task.Task) error {
	if _, ok := r.tasks[t.ID]; !ok {
		return shared.ErrTaskNotFound
	}
	r.tasks[t.ID] = t
	return nil
}

func (r *fakeTaskRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.tasks[id]; !ok {
		return shared.ErrTaskNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *fakeTaskRepo) ListByUser(_ context.Context, userID string) ([]*task.Task, error) {
	var out []*task.Task
	for _, t := range r.tasks {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTaskRepo) ListByRehearsal(_ context.Context, rehearsalID string) ([]*task.Task, error) {
	var out []*task.Task
	for _, t := range r.tasks {
		if t.RehearsalID == rehearsalID {
			out = append(out, t)
		}
	}
	return out, nil
}

// ─── badges ───

type fakeBadgeRepo struct {
	badges map[string][]*badge.Badge
}

func newFakeBadgeRepo() *fakeBadgeRepo {
	return &fakeBadgeRepo{badges: make(map[string][]*badge.Badge)}
}

func (r *fakeBadgeRepo) Grant(_ context.Context, b *badge.Badge) error {
	for _, held := range r.badges[b.UserID] {
		if held.Type == b.Type {
			return nil
		}
	}
	r.badges[b.UserID] = append(r.badges[b.UserID], b)
	return nil
}

func (r *fakeBadgeRepo) ListByUser(_ context.Context, userID string) ([]*badge.Badge, error) {
	return r.badges[userID], nil
}

func (r *fakeBadgeRepo) HeldTypes(_ context.Context, userID string) (map[badge.Type]bool, error) {
	held := make(map[badge.Type]bool)
	for _, b := range r.badges[userID] {
		held[b.Type] = true
	}
	return held, nil
}

// ─── ensembles ───

type fakeEnsembleRepo struct {
	ensembles  map[string]*ensemble.Ensemble
	rehearsals map[string]*ensemble.Rehearsal
}

func newFakeEnsembleRepo() *fakeEnsembleRepo {
	return &fakeEnsembleRepo{
		ensembles:  make(map[string]*ensemble.Ensemble),
		rehearsals: make(map[string]*ensemble.Rehearsal),
	}
}

func (r *fakeEnsembleRepo) Create(_ context.Context, e *ensemble.Ensemble) error {
	r.ensembles[e.ID] = e
	return nil
}

func (r *fakeEnsembleRepo) GetByID(_ context.Context, id string) (*ensemble.Ensemble, error) {
	e, ok := r.ensembles[id]
	if !ok {
		return nil, shared.ErrEnsembleNotFound
	}
	return e, nil
}

func (r *fakeEnsembleRepo) GetByJoinCode(_ context.Context, code shared.JoinCode) (*ensemble.Ensemble, error) {
	for _, e := range r.ensembles {
		if e.JoinCode == code {
			return e, nil
		}
	}
	return nil, shared.ErrInvalidJoinCode
}

func (r *fakeEnsembleRepo) CreateRehearsal(_ context.Context, reh *ensemble.Rehearsal) error {
	r.rehearsals[reh.ID] = reh
	return nil
}

func (r *fakeEnsembleRepo) GetRehearsal(_ context.Context, id string) (*ensemble.Rehearsal, error) {
	reh, ok := r.rehearsals[id]
	if !ok {
		return nil, shared.ErrRehearsalNotFound
	}
	return reh, nil
}

func (r *fakeEnsembleRepo) ListRehearsals(_ context.Context, ensembleID string) ([]*ensemble.Rehearsal, error) {
	var out []*ensemble.Rehearsal
	for _, reh := range r.rehearsals {
		if reh.EnsembleID == ensembleID {
			out = append(out, reh)
		}
	}
	return out, nil
}

func (r *fakeEnsembleRepo) UpdateRehearsal(_ context.Context, reh *ensemble.Rehearsal) error {
	if _, ok := r.rehearsals[reh.ID]; !ok {
		return shared.ErrRehearsalNotFound
	}
	r.rehearsals[reh.ID] = reh
	return nil
}

func (r *fakeEnsembleRepo) DeleteRehearsal(_ context.Context, id string) error {
	if _, ok := r.rehearsals[id]; !ok {
		return shared.ErrRehearsalNotFound
	}
	delete(r.rehearsals, id)
	return nil
}

// ─── notes ───

type fakeNoteRepo struct {
	notes map[string]*note.Note
}

func newFakeNoteRepo() *fakeNoteRepo {
	return &fakeNoteRepo{notes: make(map[string]*note.Note)}
}

func (r *fakeNoteRepo) Create(_ context.Context, n *note.Note) error {
	r.notes[n.ID] = n
	return nil
}

func (r *fakeNoteRepo) GetByID(_ context.Context, id string) (*note.Note, error) {
	n, ok := r.notes[id]
	if !ok {
		return nil, shared.ErrNoteNotFound
	}
	return n, nil
}

func (r *fakeNoteRepo) MarkRead(_ context.Context, id string, at time.Time) error {
	n, ok := r.notes[id]
	if !ok {
		return nil
	}
	if !n.IsRead() {
		n.MarkRead(at)
	}
	return nil
}

func (r *fakeNoteRepo) ListByStudent(_ context.Context, studentID string) ([]*note.Note, error) {
	var out []*note.Note
	for _, n := range r.notes {
		if n.StudentID == studentID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeNoteRepo) ListByTask(_ context.Context, taskID string) ([]*note.Note, error) {
	var out []*note.Note
	for _, n := range r.notes {
		if n.TaskID == taskID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeNoteRepo) CountUnread(_ context.Context, studentID string) (int, error) {
	count := 0
	for _, n := range r.notes {
		if n.StudentID == studentID && !n.IsRead() {
			count++
		}
	}
	return count, nil
}

// ─── challenges ───

type fakeChallengeRepo struct {
	challenges  map[string]*challenge.Challenge
	completions map[string][]*challenge.Completion
}

func newFakeChallengeRepo() *fakeChallengeRepo {
	return &fakeChallengeRepo{
		challenges:  make(map[string]*challenge.Challenge),
		completions: make(map[string][]*challenge.Completion),
	}
}

func (r *fakeChallengeRepo) Create(_ context.Context, c *challenge.Challenge) error {
	r.challenges[c.ID] = c
	return nil
}

func (r *fakeChallengeRepo) GetByID(_ context.Context, id string) (*challenge.Challenge, error) {
	c, ok := r.challenges[id]
	if !ok {
		return nil, shared.ErrChallengeNotFound
	}
	return c, nil
}

func (r *fakeChallengeRepo) Update(_ context.Context, c *challenge.Challenge) error {
	r.challenges[c.ID] = c
	return nil
}

func (r *fakeChallengeRepo) ListByEnsemble(_ context.Context, ensembleID string) ([]*challenge.Challenge, error) {
	var out []*challenge.Challenge
	for _, c := range r.challenges {
		if c.EnsembleID == ensembleID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeChallengeRepo) ListActivePastDeadline(_ context.Context, day time.Time) ([]*challenge.Challenge, error) {
	var out []*challenge.Challenge
	for _, c := range r.challenges {
		if c.Status == challenge.StatusActive && c.EndDate.Before(day) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeChallengeRepo) RecordCompletion(_ context.Context, comp *challenge.Completion) error {
	for _, existing := range r.completions[comp.ChallengeID] {
		if existing.UserID == comp.UserID {
			return shared.ErrAlreadyCompleted
		}
	}
	r.completions[comp.ChallengeID] = append(r.completions[comp.ChallengeID], comp)
	return nil
}

func (r *fakeChallengeRepo) ListCompletions(_ context.Context, challengeID string) ([]*challenge.Completion, error) {
	return r.completions[challengeID], nil
}

func (r *fakeChallengeRepo) HasCompleted(_ context.Context, challengeID, userID string) (bool, error) {
	for _, c := range r.completions[challengeID] {
		if c.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

// ─── event bus ───

type fakeEventBus struct {
	published []shared.Event
}

func (b *fakeEventBus) Publish(e shared.Event) error {
	b.published = append(b.published, e)
	return nil
}

func (b *fakeEventBus) Subscribe(shared.EventType, shared.EventHandler) error { return nil }

func (b *fakeEventBus) typesPublished() []shared.EventType {
	out := make([]shared.EventType, 0, len(b.published))
	for _, e := range b.published {
		out = append(out, e.EventType())
	}
	return out
}
