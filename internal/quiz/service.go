package quiz

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/emandor/pbe_journey/internal/apperr"
	"github.com/emandor/pbe_journey/internal/gamification"
	"github.com/emandor/pbe_journey/internal/model"
	"github.com/emandor/pbe_journey/internal/plan"
	"github.com/emandor/pbe_journey/internal/store"
	"github.com/emandor/pbe_journey/internal/telemetry"
)

type Store interface {
	GetUserByID(ctx context.Context, id string) (model.User, error)
	GetQuestionsByIDs(ctx context.Context, ids []string) ([]model.Question, error)
	ListQuestions(ctx context.Context, tiers []model.Tier, book string, chapter int) ([]model.Question, error)
	GetAssignment(ctx context.Context, id string) (model.StudyAssignment, error)
	ListAssignments(ctx context.Context, userID string, from, to time.Time) ([]model.StudyAssignment, error)

	CreateSession(ctx context.Context, qs model.QuizSession) error
	GetSession(ctx context.Context, id string) (model.QuizSession, error)
	ListSessionsByUser(ctx context.Context, userID string) ([]model.QuizSession, error)
	ListSessionsByTeam(ctx context.Context, teamID string) ([]model.QuizSession, error)
	UpdateSessionProgress(ctx context.Context, qs model.QuizSession) error
	CompleteSession(ctx context.Context, qs model.QuizSession) error
	SetApprovalStatus(ctx context.Context, sessionID string, status model.ApprovalStatus) error
	InsertAttemptLog(ctx context.Context, l model.AttemptLog) error
	DeleteSessionAndAdjustGamification(ctx context.Context, sessionID string, now time.Time) (model.UserStats, error)
}

type Completer interface {
	ApplyCompletion(ctx context.Context, s model.QuizSession) gamification.Outcome
	Publish(ctx context.Context, st model.UserStats)
}

type StateCache interface {
	Sessions(userID string) ([]model.QuizSession, bool)
	Upsert(s model.QuizSession)
	Remove(userID, sessionID string)
	HidesQuestion(userID, questionID string) bool
}

type Service struct {
	store     Store
	completer Completer
	state     StateCache
	now       func() time.Time
}

func NewService(st Store, completer Completer, state StateCache) *Service {
	return &Service{store: st, completer: completer, state: state, now: time.Now}
}

type CreateInput struct {
	QuestionIDs       []string `json:"question_ids" validate:"required,min=1,max=200,dive,uuid"`
	StudyAssignmentID string   `json:"study_assignment_id" validate:"omitempty,uuid"`
}

type AnswerInput struct {
	QuestionID   string `json:"question_id" validate:"required,uuid"`
	PointsEarned int    `json:"points_earned" validate:"min=0"`
	TimeSpent    int    `json:"time_spent" validate:"min=0"`
	Correct      bool   `json:"correct"`
}

type CompletionResult struct {
	Session model.SessionView    `json:"session"`
	Outcome gamification.Outcome `json:"gamification"`
}

// Create starts an active session over an ordered list of questions.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (model.QuizSession, error) {
	for _, id := range in.QuestionIDs {
		if s.state.HidesQuestion(userID, id) {
			return model.QuizSession{}, apperr.Forbidden("your plan does not include some of these questions")
		}
	}

	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return model.QuizSession{}, lookupErr("user", err)
	}

	questions, err := s.store.GetQuestionsByIDs(ctx, in.QuestionIDs)
	if err != nil {
		return model.QuizSession{}, apperr.MustSucceed("load questions", err)
	}
	byID := make(map[string]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	ordered := make([]model.Question, 0, len(in.QuestionIDs))
	for _, id := range in.QuestionIDs {
		q, ok := byID[id]
		if !ok {
			return model.QuizSession{}, apperr.Validationf("unknown question %s", id)
		}
		ordered = append(ordered, q)
	}
	if err := plan.For(u).CheckQuestions(ordered); err != nil {
		return model.QuizSession{}, apperr.Forbidden("your plan does not include some of these questions")
	}

	now := s.now().UTC()
	qs := model.QuizSession{
		ID:          uuid.NewString(),
		UserID:      userID,
		QuestionIDs: model.QuestionIDs(in.QuestionIDs),
		Results:     model.Results{},
		Status:      model.SessionActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, q := range ordered {
		qs.TotalPossiblePoints += q.Points
		qs.TotalTimeAllowance += q.TimeAllowanceSeconds
	}
	if teamID, _, ok := u.Team(); ok {
		qs.TeamID = sql.NullString{String: teamID, Valid: true}
	}

	if in.StudyAssignmentID != "" {
		a, err := s.store.GetAssignment(ctx, in.StudyAssignmentID)
		if err != nil {
			return model.QuizSession{}, lookupErr("study assignment", err)
		}
		if a.UserID != userID {
			return model.QuizSession{}, apperr.Forbidden("study assignment belongs to another user")
		}
		if a.Completed {
			return model.QuizSession{}, apperr.Validation("study assignment is already completed")
		}
		qs.StudyAssignmentID = sql.NullString{String: a.ID, Valid: true}
	}

	if err := s.store.CreateSession(ctx, qs); err != nil {
		return model.QuizSession{}, apperr.MustSucceed("save session", err)
	}
	s.state.Upsert(qs)

	log := telemetry.Ctx(ctx, "quiz")
	log.Info().Str("user_id", userID).Str("session_id", qs.ID).Int("questions", len(ordered)).Msg("session_created")
	return qs, nil
}

// RecordAnswer appends the result for the current question and rederives the
// session totals from the full result list.
func (s *Service) RecordAnswer(ctx context.Context, userID, sessionID string, in AnswerInput) (model.QuizSession, error) {
	qs, err := s.owned(ctx, userID, sessionID)
	if err != nil {
		return model.QuizSession{}, err
	}
	if qs.Completed() {
		return model.QuizSession{}, apperr.Validation("session is already completed")
	}
	if qs.CurrentQuestionIndex >= len(qs.QuestionIDs) {
		return model.QuizSession{}, apperr.Validation("all questions have been answered")
	}
	if expected := qs.QuestionIDs[qs.CurrentQuestionIndex]; in.QuestionID != expected {
		return model.QuizSession{}, apperr.Validationf("expected an answer for question %s", expected)
	}

	qList, err := s.store.GetQuestionsByIDs(ctx, []string{in.QuestionID})
	if err != nil {
		return model.QuizSession{}, apperr.MustSucceed("load question", err)
	}
	if len(qList) == 0 {
		return model.QuizSession{}, apperr.NotFound("question not found")
	}
	q := qList[0]
	if in.PointsEarned > q.Points {
		return model.QuizSession{}, apperr.Validationf("points_earned must be at most %d", q.Points)
	}

	result := model.QuestionResult{
		QuestionID:     q.ID,
		PointsEarned:   in.PointsEarned,
		PointsPossible: q.Points,
		TimeSpent:      in.TimeSpent,
		Correct:        in.Correct,
	}
	qs.Results = append(qs.Results, result)
	qs.CurrentQuestionIndex++
	qs.TotalPoints = qs.Results.TotalPoints()
	qs.TotalTimeSpent = qs.Results.TotalTime()
	qs.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateSessionProgress(ctx, qs); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.QuizSession{}, apperr.Validation("session is no longer active")
		}
		return model.QuizSession{}, apperr.MustSucceed("save answer", err)
	}
	s.state.Upsert(qs)

	log := telemetry.Ctx(ctx, "quiz").With().Str("session_id", qs.ID).Logger()
	apperr.BestEffortDo(log, "attempt_log_failed", func() error {
		return s.store.InsertAttemptLog(ctx, model.AttemptLog{
			SessionID:      qs.ID,
			UserID:         qs.UserID,
			QuestionID:     q.ID,
			Book:           q.Book,
			Chapter:        q.Chapter,
			Correct:        in.Correct,
			PointsEarned:   in.PointsEarned,
			PointsPossible: q.Points,
			TimeSpent:      in.TimeSpent,
			CreatedAt:      qs.UpdatedAt,
		})
	})
	return qs, nil
}

// Complete marks the session completed, then applies the derived gamification
// updates. Only the session write can fail the call.
func (s *Service) Complete(ctx context.Context, userID, sessionID string) (CompletionResult, error) {
	qs, err := s.owned(ctx, userID, sessionID)
	if err != nil {
		return CompletionResult{}, err
	}
	if qs.Completed() {
		return CompletionResult{}, apperr.Validation("session is already completed")
	}

	now := s.now().UTC()
	qs.Status = model.SessionCompleted
	qs.TotalPoints = qs.Results.TotalPoints()
	qs.TotalTimeSpent = qs.Results.TotalTime()
	qs.CompletedAt = sql.NullTime{Time: now, Valid: true}
	qs.UpdatedAt = now

	if err := s.store.CompleteSession(ctx, qs); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return CompletionResult{}, apperr.Validation("session is already completed")
		}
		return CompletionResult{}, apperr.MustSucceed("complete session", err)
	}

	outcome := s.completer.ApplyCompletion(ctx, qs)
	if outcome.AssignmentLinked {
		qs.BonusXP = sql.NullInt64{Int64: int64(outcome.BonusXP), Valid: true}
	}
	s.state.Upsert(qs)

	log := telemetry.Ctx(ctx, "quiz")
	log.Info().
		Str("user_id", userID).
		Str("session_id", qs.ID).
		Int("total_points", qs.TotalPoints).
		Int("bonus_xp", outcome.BonusXP).
		Msg("session_completed")
	return CompletionResult{Session: qs.View(), Outcome: outcome}, nil
}

// Delete removes a session and rebuilds the owner's stats as if it never
// existed. The owner, a manager of the session's team, or an admin may delete.
func (s *Service) Delete(ctx context.Context, userID, sessionID string) error {
	qs, err := s.visible(ctx, userID, sessionID, true)
	if err != nil {
		return err
	}
	st, err := s.store.DeleteSessionAndAdjustGamification(ctx, qs.ID, s.now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("session not found")
		}
		return apperr.MustSucceed("delete session", err)
	}
	s.state.Remove(qs.UserID, qs.ID)
	s.completer.Publish(ctx, st)

	log := telemetry.Ctx(ctx, "quiz")
	log.Info().Str("by_user_id", userID).Str("session_id", qs.ID).Int("total_xp", st.TotalXP).Msg("session_deleted")
	return nil
}

// SetApproval records a team manager's review of a session.
func (s *Service) SetApproval(ctx context.Context, userID, sessionID string, status model.ApprovalStatus) (model.QuizSession, error) {
	if !status.Valid() {
		return model.QuizSession{}, apperr.Validation("status must be one of approved pending rejected")
	}
	qs, err := s.load(ctx, sessionID)
	if err != nil {
		return model.QuizSession{}, err
	}
	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return model.QuizSession{}, lookupErr("user", err)
	}
	if !managesSession(u, qs) {
		return model.QuizSession{}, apperr.Forbidden("only team owners and admins can review sessions")
	}
	if err := s.store.SetApprovalStatus(ctx, qs.ID, status); err != nil {
		return model.QuizSession{}, apperr.MustSucceed("save approval", err)
	}
	qs.ApprovalStatus = sql.NullString{String: string(status), Valid: true}
	s.state.Upsert(qs)
	return qs, nil
}

func (s *Service) Get(ctx context.Context, userID, sessionID string) (model.QuizSession, error) {
	return s.visible(ctx, userID, sessionID, false)
}

// List serves the user's sessions from the login state when it is loaded.
func (s *Service) List(ctx context.Context, userID string) ([]model.QuizSession, error) {
	if cached, ok := s.state.Sessions(userID); ok {
		return cached, nil
	}
	out, err := s.store.ListSessionsByUser(ctx, userID)
	return out, apperr.MustSucceed("list sessions", err)
}

func (s *Service) ListTeam(ctx context.Context, userID string) ([]model.QuizSession, error) {
	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, lookupErr("user", err)
	}
	teamID, role, ok := u.Team()
	if !ok || !role.CanManage() {
		return nil, apperr.Forbidden("only team owners and admins can list team sessions")
	}
	out, err := s.store.ListSessionsByTeam(ctx, teamID)
	return out, apperr.MustSucceed("list team sessions", err)
}

func (s *Service) ListAssignments(ctx context.Context, userID string, from, to time.Time) ([]model.StudyAssignment, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, apperr.Validation("to must not be before from")
	}
	out, err := s.store.ListAssignments(ctx, userID, from, to)
	return out, apperr.MustSucceed("list assignments", err)
}

// ListQuestions returns questions the user's plan can read.
func (s *Service) ListQuestions(ctx context.Context, userID, book string, chapter int) ([]model.Question, error) {
	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, lookupErr("user", err)
	}
	out, err := s.store.ListQuestions(ctx, plan.For(u).Tiers(), book, chapter)
	return out, apperr.MustSucceed("list questions", err)
}

func (s *Service) load(ctx context.Context, sessionID string) (model.QuizSession, error) {
	qs, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return model.QuizSession{}, lookupErr("session", err)
	}
	return qs, nil
}

// owned loads a session that only its owner may mutate.
func (s *Service) owned(ctx context.Context, userID, sessionID string) (model.QuizSession, error) {
	qs, err := s.load(ctx, sessionID)
	if err != nil {
		return model.QuizSession{}, err
	}
	if qs.UserID != userID {
		return model.QuizSession{}, apperr.Forbidden("session belongs to another user")
	}
	return qs, nil
}

// visible loads a session the caller owns or manages through their team.
func (s *Service) visible(ctx context.Context, userID, sessionID string, mutate bool) (model.QuizSession, error) {
	qs, err := s.load(ctx, sessionID)
	if err != nil {
		return model.QuizSession{}, err
	}
	if qs.UserID == userID {
		return qs, nil
	}
	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return model.QuizSession{}, lookupErr("user", err)
	}
	if managesSession(u, qs) {
		return qs, nil
	}
	if mutate {
		return model.QuizSession{}, apperr.Forbidden("only the owner or a team owner or admin can delete this session")
	}
	return model.QuizSession{}, apperr.Forbidden("session belongs to another user")
}

func managesSession(u model.User, qs model.QuizSession) bool {
	if u.Role == model.RoleAdmin {
		return true
	}
	teamID, role, ok := u.Team()
	return ok && role.CanManage() && qs.TeamID.Valid && qs.TeamID.String == teamID
}

func lookupErr(what string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(what + " not found")
	}
	return apperr.MustSucceed("load "+what, err)
}
