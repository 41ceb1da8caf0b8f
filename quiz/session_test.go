package quiz

import (
	"errors"
	"testing"
	"time"

	"github.com/korjavin/quizbot/models"
)

func testQuiz(n int) models.Quiz {
	q := models.Quiz{ID: "q1", Title: "T", Level: models.LevelEasy}
	for i := 0; i < n; i++ {
		q.Questions = append(q.Questions, models.Question{
			Title:        "question",
			Alternatives: []string{"a", "b"},
			Correct:      0,
		})
	}
	return q
}

func newTestSession(t *testing.T, q models.Quiz) *Session {
	t.Helper()
	now := time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)
	s, err := NewSession(q,
		WithClock(func() time.Time { return now }),
		WithIDGenerator(func() string { return "rec-1" }),
	)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return s
}

func answer(t *testing.T, s *Session, alt int) ConfirmResult {
	t.Helper()
	if err := s.SelectAlternative(alt); err != nil {
		t.Fatalf("select %d: %v", alt, err)
	}
	res, err := s.Confirm()
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	return res
}

func TestNewSession_EmptyQuizRejected(t *testing.T) {
	_, err := NewSession(models.Quiz{ID: "empty"})
	if !errors.Is(err, ErrEmptyQuiz) {
		t.Fatalf("err = %v, want %v", err, ErrEmptyQuiz)
	}
}

func TestNewSession_DistinctIDs(t *testing.T) {
	a := newTestSession(t, testQuiz(1))
	b := newTestSession(t, testQuiz(1))
	if a.ID() == "" || a.ID() == b.ID() {
		t.Fatalf("session ids = %q, %q, want distinct non-empty", a.ID(), b.ID())
	}
}

func TestSession_CompletedRecord(t *testing.T) {
	s := newTestSession(t, testQuiz(2))

	res := answer(t, s, 0)
	if res.Result != ResultCorrect {
		t.Fatalf("result = %s, want %s", res.Result, ResultCorrect)
	}
	if s.FeedbackStatus() != StatusCorrect {
		t.Fatalf("status = %s, want %s", s.FeedbackStatus(), StatusCorrect)
	}
	adv, err := s.AcknowledgeFeedback()
	if err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if adv.Completed || adv.Index != 1 {
		t.Fatalf("advance = %+v, want index 1 not completed", adv)
	}

	res = answer(t, s, 1)
	if res.Result != ResultIncorrect {
		t.Fatalf("result = %s, want %s", res.Result, ResultIncorrect)
	}
	adv, err = s.AcknowledgeFeedback()
	if err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if !adv.Completed || adv.Record == nil {
		t.Fatalf("advance = %+v, want completed with record", adv)
	}
	if s.State() != StateCompleted {
		t.Fatalf("state = %s, want %s", s.State(), StateCompleted)
	}

	want := models.HistoryRecord{
		ID:          "rec-1",
		Title:       "T",
		Level:       models.LevelEasy,
		Points:      1,
		Questions:   2,
		CompletedAt: time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC),
	}
	if *adv.Record != want {
		t.Fatalf("record = %+v, want %+v", *adv.Record, want)
	}
	got, ok := s.Record()
	if !ok || got != want {
		t.Fatalf("Record() = %+v, %v, want %+v", got, ok, want)
	}
}

func TestSession_ConfirmEffects(t *testing.T) {
	tests := []struct {
		name   string
		alt    int
		status Status
	}{
		{name: "correct", alt: 0, status: StatusCorrect},
		{name: "incorrect", alt: 1, status: StatusIncorrect},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t, testQuiz(1))
			res := answer(t, s, tt.alt)
			if len(res.Effects) != 2 {
				t.Fatalf("effects = %d, want 2", len(res.Effects))
			}
			kinds := map[EffectKind]bool{}
			for _, e := range res.Effects {
				if e.Status != tt.status {
					t.Fatalf("effect status = %s, want %s", e.Status, tt.status)
				}
				kinds[e.Kind] = true
			}
			if !kinds[EffectHaptic] || !kinds[EffectSound] {
				t.Fatalf("effect kinds = %v, want haptic and sound", kinds)
			}
			if s.State() != StateConfirming {
				t.Fatalf("state = %s, want %s", s.State(), StateConfirming)
			}
		})
	}
}

func TestSession_ConfirmWithoutSelection(t *testing.T) {
	s := newTestSession(t, testQuiz(2))
	res, err := s.Confirm()
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if res.Result != ResultNeedsSkipConfirmation {
		t.Fatalf("result = %s, want %s", res.Result, ResultNeedsSkipConfirmation)
	}
	if len(res.Effects) != 0 {
		t.Fatalf("effects = %d, want 0", len(res.Effects))
	}
	if s.Points() != 0 || s.FeedbackStatus() != StatusNone || s.State() != StateAnswering {
		t.Fatalf("session mutated: points=%d status=%s state=%s", s.Points(), s.FeedbackStatus(), s.State())
	}
}

func TestSession_SelectOutOfRange(t *testing.T) {
	s := newTestSession(t, testQuiz(1))
	if err := s.SelectAlternative(1); err != nil {
		t.Fatalf("select 1: %v", err)
	}
	for _, i := range []int{2, -1} {
		err := s.SelectAlternative(i)
		if !errors.Is(err, ErrAlternativeOutOfRange) {
			t.Fatalf("select %d err = %v, want %v", i, err, ErrAlternativeOutOfRange)
		}
	}
	if got, ok := s.Selected(); !ok || got != 1 {
		t.Fatalf("selected = %d, %v, want 1, true", got, ok)
	}
}

func TestSession_SkipLastQuestionCompletes(t *testing.T) {
	s := newTestSession(t, testQuiz(2))
	answer(t, s, 0)
	if _, err := s.AcknowledgeFeedback(); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if err := s.SelectAlternative(0); err != nil {
		t.Fatalf("select: %v", err)
	}
	adv, err := s.Skip()
	if err != nil {
		t.Fatalf("skip: %v", err)
	}
	if !adv.Completed {
		t.Fatalf("advance = %+v, want completed", adv)
	}
	if s.Points() != 1 || adv.Record.Points != 1 {
		t.Fatalf("points = %d record points = %d, want 1", s.Points(), adv.Record.Points)
	}
}

func TestSession_NOperationsComplete(t *testing.T) {
	const n = 4
	s := newTestSession(t, testQuiz(n))
	for i := 0; i < n; i++ {
		var (
			adv Advance
			err error
		)
		if i%2 == 0 {
			answer(t, s, 0)
			adv, err = s.AcknowledgeFeedback()
		} else {
			adv, err = s.Skip()
		}
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if adv.Completed != (i == n-1) {
			t.Fatalf("step %d completed = %v", i, adv.Completed)
		}
	}
	if _, err := s.Skip(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("skip after completion err = %v, want %v", err, ErrInvalidTransition)
	}
	if _, err := s.AcknowledgeFeedback(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("acknowledge after completion err = %v, want %v", err, ErrInvalidTransition)
	}
	if err := s.Stop(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("stop after completion err = %v, want %v", err, ErrInvalidTransition)
	}
}

func TestSession_InvalidTransitions(t *testing.T) {
	s := newTestSession(t, testQuiz(2))
	if _, err := s.AcknowledgeFeedback(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("acknowledge while answering err = %v, want %v", err, ErrInvalidTransition)
	}

	answer(t, s, 0)
	if err := s.SelectAlternative(1); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("select while confirming err = %v, want %v", err, ErrInvalidTransition)
	}
	if _, err := s.Confirm(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("confirm while confirming err = %v, want %v", err, ErrInvalidTransition)
	}
	if _, err := s.Skip(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("skip while confirming err = %v, want %v", err, ErrInvalidTransition)
	}
	if s.Points() != 1 {
		t.Fatalf("points = %d, want 1", s.Points())
	}
}

func TestSession_StopEndsWithoutRecord(t *testing.T) {
	s := newTestSession(t, testQuiz(3))
	answer(t, s, 0)
	if err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if s.State() != StateStopped {
		t.Fatalf("state = %s, want %s", s.State(), StateStopped)
	}
	if _, ok := s.Record(); ok {
		t.Fatal("expected no record after stop")
	}
	if err := s.SelectAlternative(0); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("select after stop err = %v, want %v", err, ErrInvalidTransition)
	}
}

func TestSession_PointsInvariant(t *testing.T) {
	s := newTestSession(t, testQuiz(5))
	prev := 0
	check := func() {
		t.Helper()
		if s.Points() < prev {
			t.Fatalf("points decreased from %d to %d", prev, s.Points())
		}
		if s.Points() > s.CurrentIndex()+1 {
			t.Fatalf("points = %d exceeds index+1 = %d", s.Points(), s.CurrentIndex()+1)
		}
		prev = s.Points()
	}

	for !s.State().Terminal() {
		_ = s.SelectAlternative(s.CurrentIndex() % 2)
		check()
		if _, err := s.Confirm(); err != nil {
			t.Fatalf("confirm: %v", err)
		}
		check()
		if _, err := s.AcknowledgeFeedback(); err != nil {
			t.Fatalf("acknowledge: %v", err)
		}
		check()
	}
	if s.Points() != 3 {
		t.Fatalf("points = %d, want 3", s.Points())
	}
}

func TestSession_AcknowledgeClearsSelection(t *testing.T) {
	s := newTestSession(t, testQuiz(2))
	answer(t, s, 1)
	if _, err := s.AcknowledgeFeedback(); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if _, ok := s.Selected(); ok {
		t.Fatal("expected selection cleared")
	}
	if s.FeedbackStatus() != StatusNone {
		t.Fatalf("status = %s, want %s", s.FeedbackStatus(), StatusNone)
	}
	if s.Progress() != 100 {
		t.Fatalf("progress = %d, want 100", s.Progress())
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		current, total, want int
	}{
		{1, 4, 25},
		{4, 4, 100},
		{1, 3, 33},
		{2, 3, 67},
		{0, 0, 0},
	}
	for _, tt := range tests {
		if got := Percentage(tt.current, tt.total); got != tt.want {
			t.Fatalf("Percentage(%d, %d) = %d, want %d", tt.current, tt.total, got, tt.want)
		}
	}
}
