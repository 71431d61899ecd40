package assessment

import (
	"errors"

	"sciencebindu-backend/internal/models"
)

type State string

const (
	StateSelectingScope State = "selecting-scope"
	StateContentLoading State = "content-loading"
	StateLoadFailed     State = "load-failed"
	StateReady          State = "ready"
	StateQuestion       State = "question"
	StateFeedback       State = "feedback"
	StateResult         State = "result"
)

var (
	ErrNoQuestions       = errors.New("no questions available for this scope")
	ErrInvalidOption     = errors.New("option index out of range")
	ErrInvalidTransition = errors.New("action not allowed in the current exam state")
)

const (
	ScopeChapter  = "chapter"
	ScopeCategory = "category"
)

// Scope identifies what the learner is being examined on. Label is written
// verbatim into the QuizResult category.
type Scope struct {
	Kind       string `json:"kind"`
	ClassID    string `json:"class_id,omitempty"`
	SubjectID  string `json:"subject_id,omitempty"`
	ChapterID  string `json:"chapter_id,omitempty"`
	CategoryID string `json:"category_id,omitempty"`
	Label      string `json:"label"`
	Level      string `json:"level,omitempty"`
}

// Exam is one learner's progress through a fixed question set.
// Score never exceeds Index+1 and Index stays below len(Items) once started.
type Exam struct {
	State      State                  `json:"state"`
	Scope      *Scope                 `json:"scope,omitempty"`
	Suggestion *models.SuggestionData `json:"suggestion,omitempty"`
	Items      []models.MCQ           `json:"items,omitempty"`
	Index      int                    `json:"index"`
	Score      int                    `json:"score"`
	Selected   *int                   `json:"selected,omitempty"`
	ErrorMsg   string                 `json:"error_message,omitempty"`
	Result     *models.QuizResult     `json:"result,omitempty"`

	// Notes is the uploaded chapter text the set was generated from. It is
	// kept so a failed load can be retried, and never shown in View.
	Notes string `json:"notes,omitempty"`
}

func New() *Exam {
	return &Exam{State: StateSelectingScope}
}

// BeginLoad drops any previous content and enters content-loading for scope.
func (e *Exam) BeginLoad(scope Scope, notes string) {
	*e = Exam{State: StateContentLoading, Scope: &scope, Notes: notes}
}

// LoadSucceeded fixes the question set for the attempt.
func (e *Exam) LoadSucceeded(items []models.MCQ, suggestion *models.SuggestionData) error {
	if e.State != StateContentLoading {
		return ErrInvalidTransition
	}
	e.Items = items
	e.Suggestion = suggestion
	e.ErrorMsg = ""
	e.State = StateReady
	return nil
}

// LoadFailed enters the error sub-state without any partial content.
func (e *Exam) LoadFailed(msg string) {
	e.Items = nil
	e.Suggestion = nil
	e.ErrorMsg = msg
	e.State = StateLoadFailed
}

// Start begins an attempt from ready, or restarts one from result with the same items.
func (e *Exam) Start() error {
	if e.State != StateReady && e.State != StateResult {
		return ErrInvalidTransition
	}
	if len(e.Items) == 0 {
		e.LoadFailed(ErrNoQuestions.Error())
		return ErrNoQuestions
	}
	e.Index = 0
	e.Score = 0
	e.Selected = nil
	e.Result = nil
	e.State = StateQuestion
	return nil
}

// Select records an answer for the current question. While feedback is shown
// it is a no-op and reports changed=false.
func (e *Exam) Select(option int) (changed bool, err error) {
	if e.State == StateFeedback {
		return false, nil
	}
	if e.State != StateQuestion {
		return false, ErrInvalidTransition
	}
	item := e.Items[e.Index]
	if option < 0 || option >= len(item.Options) {
		return false, ErrInvalidOption
	}

	e.Selected = &option
	if option == item.Correct {
		e.Score++
	}
	e.State = StateFeedback
	return true, nil
}

// Advance moves to the next question. On the last question it reports
// finished=true and leaves the state untouched until Complete is called.
func (e *Exam) Advance() (finished bool, err error) {
	if e.State != StateFeedback {
		return false, ErrInvalidTransition
	}
	if e.Index < len(e.Items)-1 {
		e.Index++
		e.Selected = nil
		e.State = StateQuestion
		return false, nil
	}
	return true, nil
}

// PendingResult builds the result for a finished attempt.
func (e *Exam) PendingResult(date string) models.QuizResult {
	res := models.QuizResult{
		Date:           date,
		Score:          e.Score,
		TotalQuestions: len(e.Items),
	}
	if e.Scope != nil {
		res.Category = e.Scope.Label
		if e.Scope.Level != "" {
			level := e.Scope.Level
			res.Level = &level
		}
	}
	return res
}

// Complete enters result once the finished attempt has been persisted.
func (e *Exam) Complete(res models.QuizResult) error {
	if e.State != StateFeedback || e.Index != len(e.Items)-1 {
		return ErrInvalidTransition
	}
	e.Result = &res
	e.State = StateResult
	return nil
}

func (e *Exam) Retry() error {
	if e.State != StateResult {
		return ErrInvalidTransition
	}
	return e.Start()
}

// Exit returns to scope selection and discards the question set.
func (e *Exam) Exit() {
	*e = Exam{State: StateSelectingScope}
}

// Percentage is the rounded share of correct answers; zero for an empty set.
func (e *Exam) Percentage() int {
	if len(e.Items) == 0 {
		return 0
	}
	return (e.Score*100 + len(e.Items)/2) / len(e.Items)
}
