package quiz

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/korjavin/quizbot/models"
)

const noSelection = -1

// ConfirmResult is returned by Confirm
type ConfirmResult struct {
	Result  Result
	Effects []Effect
}

// Advance describes where the session landed after Skip or AcknowledgeFeedback
type Advance struct {
	Index     int
	Completed bool
	Record    *models.HistoryRecord
}

// Session holds the mutable state of one play-through of a quiz.
// It is owned by a single caller and is not safe for concurrent use.
type Session struct {
	id       string
	quiz     models.Quiz
	state    State
	index    int
	points   int
	selected int
	status   Status
	record   *models.HistoryRecord

	now   func() time.Time
	newID func() string
}

// Option configures a Session
type Option func(*Session)

// WithClock overrides the clock used to stamp the history record
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithIDGenerator overrides how history record ids are generated
func WithIDGenerator(newID func() string) Option {
	return func(s *Session) { s.newID = newID }
}

// NewSession starts a session on the first question of q
func NewSession(q models.Quiz, opts ...Option) (*Session, error) {
	if len(q.Questions) == 0 {
		return nil, fmt.Errorf("start quiz %q: %w", q.ID, ErrEmptyQuiz)
	}
	s := &Session{
		id:       uuid.NewString(),
		quiz:     q,
		state:    StateAnswering,
		selected: noSelection,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Session) ID() string             { return s.id }
func (s *Session) Quiz() models.Quiz      { return s.quiz }
func (s *Session) State() State           { return s.state }
func (s *Session) CurrentIndex() int      { return s.index }
func (s *Session) Points() int            { return s.points }
func (s *Session) FeedbackStatus() Status { return s.status }
func (s *Session) Total() int             { return len(s.quiz.Questions) }

// CurrentQuestion returns the question being answered
func (s *Session) CurrentQuestion() models.Question {
	return s.quiz.Questions[s.index]
}

// Selected returns the chosen alternative, if any
func (s *Session) Selected() (int, bool) {
	if s.selected == noSelection {
		return 0, false
	}
	return s.selected, true
}

// Record returns the history record once the session is completed
func (s *Session) Record() (models.HistoryRecord, bool) {
	if s.record == nil {
		return models.HistoryRecord{}, false
	}
	return *s.record, true
}

// Progress is the display percentage for the current question
func (s *Session) Progress() int {
	return Percentage(s.index+1, len(s.quiz.Questions))
}

// SelectAlternative marks alternative i of the current question as chosen
func (s *Session) SelectAlternative(i int) error {
	if err := s.require("select alternative", StateAnswering); err != nil {
		return err
	}
	if n := len(s.CurrentQuestion().Alternatives); i < 0 || i >= n {
		return fmt.Errorf("select alternative %d of %d: %w", i, n, ErrAlternativeOutOfRange)
	}
	s.selected = i
	return nil
}

// Confirm scores the selected alternative. Without a selection it reports
// ResultNeedsSkipConfirmation and leaves the session untouched.
func (s *Session) Confirm() (ConfirmResult, error) {
	if err := s.require("confirm", StateAnswering); err != nil {
		return ConfirmResult{}, err
	}
	if s.selected == noSelection {
		return ConfirmResult{Result: ResultNeedsSkipConfirmation}, nil
	}

	res := ConfirmResult{Result: ResultIncorrect}
	s.status = StatusIncorrect
	if s.selected == s.CurrentQuestion().Correct {
		s.points++
		s.status = StatusCorrect
		res.Result = ResultCorrect
	}
	res.Effects = []Effect{
		{Kind: EffectHaptic, Status: s.status},
		{Kind: EffectSound, Status: s.status},
	}
	s.state = StateConfirming
	return res, nil
}

// AcknowledgeFeedback consumes the feedback status and moves on
func (s *Session) AcknowledgeFeedback() (Advance, error) {
	if err := s.require("acknowledge feedback", StateConfirming); err != nil {
		return Advance{}, err
	}
	s.selected = noSelection
	s.status = StatusNone
	s.state = StateAdvancing
	return s.advance(), nil
}

// Skip moves past the current question without scoring it.
// Callers must have the player confirm before calling it.
func (s *Session) Skip() (Advance, error) {
	if err := s.require("skip", StateAnswering); err != nil {
		return Advance{}, err
	}
	s.selected = noSelection
	s.state = StateAdvancing
	return s.advance(), nil
}

// Stop ends the session without producing a history record.
// Callers must have the player confirm before calling it.
func (s *Session) Stop() error {
	if s.state.Terminal() {
		return fmt.Errorf("stop in state %s: %w", s.state, ErrInvalidTransition)
	}
	s.selected = noSelection
	s.status = StatusNone
	s.state = StateStopped
	return nil
}

func (s *Session) advance() Advance {
	if s.index < len(s.quiz.Questions)-1 {
		s.index++
		s.state = StateAnswering
		return Advance{Index: s.index}
	}

	s.state = StateCompleted
	s.record = &models.HistoryRecord{
		ID:          s.newID(),
		Title:       s.quiz.Title,
		Level:       s.quiz.Level,
		Points:      s.points,
		Questions:   len(s.quiz.Questions),
		CompletedAt: s.now(),
	}
	rec := *s.record
	return Advance{Index: s.index, Completed: true, Record: &rec}
}

func (s *Session) require(op string, want State) error {
	if s.state != want {
		return fmt.Errorf("%s in state %s: %w", op, s.state, ErrInvalidTransition)
	}
	return nil
}

// Percentage returns current/total as a rounded percentage
func Percentage(current, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(current) / float64(total) * 100))
}
