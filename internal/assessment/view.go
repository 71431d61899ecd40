package assessment

import "sciencebindu-backend/internal/models"

type QuestionView struct {
	Number      int      `json:"number"`
	Total       int      `json:"total"`
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Selected    *int     `json:"selected,omitempty"`
	Correct     *int     `json:"correct,omitempty"`
	IsCorrect   *bool    `json:"is_correct,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
}

// View is the client-facing projection of an Exam. The correct answer of the
// current question is only revealed once feedback is shown.
type View struct {
	State      State                  `json:"state"`
	Scope      *Scope                 `json:"scope,omitempty"`
	Suggestion *models.SuggestionData `json:"suggestion,omitempty"`
	Question   *QuestionView          `json:"question,omitempty"`
	Score      int                    `json:"score"`
	Total      int                    `json:"total"`
	Percentage int                    `json:"percentage"`
	Result     *models.QuizResult     `json:"result,omitempty"`
	ErrorMsg   string                 `json:"error_message,omitempty"`
}

func (e *Exam) View() View {
	v := View{
		State:    e.State,
		Scope:    e.Scope,
		Score:    e.Score,
		Total:    len(e.Items),
		Result:   e.Result,
		ErrorMsg: e.ErrorMsg,
	}
	if e.Suggestion != nil {
		s := *e.Suggestion
		s.MCQs = nil
		v.Suggestion = &s
	}
	if e.State == StateResult {
		v.Percentage = e.Percentage()
	}

	if e.State != StateQuestion && e.State != StateFeedback {
		return v
	}
	item := e.Items[e.Index]
	q := &QuestionView{
		Number:   e.Index + 1,
		Total:    len(e.Items),
		Question: item.Question,
		Options:  item.Options,
	}
	if e.State == StateFeedback && e.Selected != nil {
		correct := item.Correct
		ok := *e.Selected == correct
		q.Selected = e.Selected
		q.Correct = &correct
		q.IsCorrect = &ok
		q.Explanation = item.Explanation
	}
	v.Question = q
	return v
}
