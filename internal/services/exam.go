package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"sciencebindu-backend/internal/assessment"
	"sciencebindu-backend/internal/catalog"
	"sciencebindu-backend/internal/models"
)

const (
	msgNoQuestions  = "এই অংশে কোনো প্রশ্ন পাওয়া যায়নি।"
	msgResultSaving = "ফলাফল সংরক্ষণ করা হচ্ছে।"
)

type examStore interface {
	Get(ctx context.Context, userID uuid.UUID) (*assessment.Exam, error)
	Save(ctx context.Context, userID uuid.UUID, exam *assessment.Exam) error
	Delete(ctx context.Context, userID uuid.UUID) error
	ClaimFinish(ctx context.Context, userID uuid.UUID) (release func(), ok bool, err error)
}

type quizResultWriter interface {
	Create(ctx context.Context, res *models.QuizResult) error
}

type suggestionGenerator interface {
	Generate(ctx context.Context, className, subjectName, chapterName, notes string) (*models.SuggestionData, error)
}

type updatePublisher interface {
	PublishUpdate(ctx context.Context, userID uuid.UUID, msg models.WSMessage)
}

// ExamService drives the assessment flow for both academic chapters and quiz
// categories, persisting each learner's active exam between requests.
type ExamService struct {
	store     examStore
	results   quizResultWriter
	catalog   *catalog.Catalog
	suggest   suggestionGenerator
	publisher updatePublisher
	locale    string
	now       func() time.Time
}

func NewExamService(store examStore, results quizResultWriter, cat *catalog.Catalog, suggest suggestionGenerator, publisher updatePublisher, locale string) *ExamService {
	return &ExamService{
		store:     store,
		results:   results,
		catalog:   cat,
		suggest:   suggest,
		publisher: publisher,
		locale:    locale,
		now:       time.Now,
	}
}

func (s *ExamService) Current(ctx context.Context, userID uuid.UUID) (*assessment.Exam, error) {
	return s.store.Get(ctx, userID)
}

// SelectScope discards any previous content and loads the question set for
// the requested scope. A failed load is not an error: the exam is returned in
// load-failed with the reason.
func (s *ExamService) SelectScope(ctx context.Context, userID uuid.UUID, req models.ExamScopeRequest, notes string) (*assessment.Exam, error) {
	scope, err := s.resolveScope(req)
	if err != nil {
		return nil, err
	}

	exam := assessment.New()
	exam.BeginLoad(*scope, notes)
	if err := s.store.Save(ctx, userID, exam); err != nil {
		return nil, err
	}
	s.publish(ctx, userID, exam)

	s.load(ctx, exam)
	if err := s.store.Save(ctx, userID, exam); err != nil {
		return nil, err
	}
	s.publish(ctx, userID, exam)
	return exam, nil
}

func (s *ExamService) resolveScope(req models.ExamScopeRequest) (*assessment.Scope, error) {
	switch req.Kind {
	case assessment.ScopeChapter:
		ref, ok := s.catalog.Chapter(req.ClassID, req.SubjectID, req.ChapterID)
		if !ok {
			return nil, &NotFoundError{Message: "Chapter not found"}
		}
		return &assessment.Scope{
			Kind:      assessment.ScopeChapter,
			ClassID:   req.ClassID,
			SubjectID: req.SubjectID,
			ChapterID: req.ChapterID,
			Label:     "BCS Prep: " + ref.Chapter.Name,
			Level:     ref.ClassName,
		}, nil
	case assessment.ScopeCategory:
		cat, ok := s.catalog.Category(req.CategoryID)
		if !ok {
			return nil, &NotFoundError{Message: "Quiz category not found"}
		}
		return &assessment.Scope{
			Kind:       assessment.ScopeCategory,
			CategoryID: cat.ID,
			Label:      cat.Name,
			Level:      cat.Level,
		}, nil
	}
	return nil, &ValidationError{Fields: map[string]string{"kind": "must be chapter or category"}}
}

// load fills a content-loading exam. Static datasets win unless the learner
// supplied their own notes.
func (s *ExamService) load(ctx context.Context, exam *assessment.Exam) {
	scope, notes := exam.Scope, exam.Notes

	if scope.Kind == assessment.ScopeCategory {
		cat, ok := s.catalog.Category(scope.CategoryID)
		if !ok {
			exam.LoadFailed("Quiz category not found")
			return
		}
		_ = exam.LoadSucceeded(categoryItems(cat), nil)
		return
	}

	if notes == "" {
		if data, ok := s.catalog.StaticSuggestion(scope.ChapterID); ok {
			_ = exam.LoadSucceeded(data.MCQs, data)
			return
		}
	}

	ref, ok := s.catalog.Chapter(scope.ClassID, scope.SubjectID, scope.ChapterID)
	if !ok {
		exam.LoadFailed("Chapter not found")
		return
	}
	data, err := s.suggest.Generate(ctx, ref.ClassName, ref.SubjectName, ref.Chapter.Name, notes)
	if err != nil {
		log.Printf("Suggestion generation failed for %s: %v", scope.ChapterID, err)
		exam.LoadFailed(userMessage(err))
		return
	}
	_ = exam.LoadSucceeded(data.MCQs, data)
}

func categoryItems(cat *models.QuizCategory) []models.MCQ {
	items := make([]models.MCQ, 0, len(cat.Questions))
	for _, q := range cat.Questions {
		items = append(items, models.MCQ{
			ID:          models.ItemID(fmt.Sprint(q.ID)),
			Question:    q.Question,
			Options:     q.Options,
			Correct:     q.CorrectAnswer,
			Explanation: q.Explanation,
		})
	}
	return items
}

func (s *ExamService) Start(ctx context.Context, userID uuid.UUID) (*assessment.Exam, error) {
	return s.mutate(ctx, userID, func(exam *assessment.Exam) error {
		return exam.Start()
	})
}

func (s *ExamService) Select(ctx context.Context, userID uuid.UUID, option int) (*assessment.Exam, error) {
	return s.mutate(ctx, userID, func(exam *assessment.Exam) error {
		_, err := exam.Select(option)
		return err
	})
}

// Retry restarts a finished attempt with the same questions, or reloads the
// scope after a failed load.
func (s *ExamService) Retry(ctx context.Context, userID uuid.UUID) (*assessment.Exam, error) {
	exam, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if exam.State == assessment.StateLoadFailed && exam.Scope != nil {
		exam.BeginLoad(*exam.Scope, exam.Notes)
		s.load(ctx, exam)
		if err := s.store.Save(ctx, userID, exam); err != nil {
			return nil, err
		}
		s.publish(ctx, userID, exam)
		return exam, nil
	}

	return s.mutate(ctx, userID, func(exam *assessment.Exam) error {
		return exam.Retry()
	})
}

// Next advances past the current feedback. Finishing the last question writes
// the result first; if that write fails the exam is left at the last feedback.
func (s *ExamService) Next(ctx context.Context, userID uuid.UUID) (*assessment.Exam, error) {
	exam, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	finished, err := exam.Advance()
	if err != nil {
		return nil, examError(err)
	}
	if finished {
		release, ok, err := s.store.ClaimFinish(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &ConflictError{Message: msgResultSaving}
		}
		defer release()

		// Re-read under the lock: a concurrent Next may have finished already.
		if exam, err = s.store.Get(ctx, userID); err != nil {
			return nil, err
		}
		if finished, err = exam.Advance(); err != nil {
			return nil, examError(err)
		}
		if !finished {
			return nil, &ConflictError{Message: assessment.ErrInvalidTransition.Error()}
		}

		res := exam.PendingResult(assessment.FormatDate(s.now(), s.locale))
		res.UserID = userID
		if err := s.results.Create(ctx, &res); err != nil {
			return nil, fmt.Errorf("failed to save quiz result: %w", err)
		}
		if err := exam.Complete(res); err != nil {
			return nil, examError(err)
		}
	}

	if err := s.store.Save(ctx, userID, exam); err != nil {
		return nil, err
	}
	s.publish(ctx, userID, exam)
	return exam, nil
}

// Exit discards the active exam.
func (s *ExamService) Exit(ctx context.Context, userID uuid.UUID) error {
	return s.store.Delete(ctx, userID)
}

func (s *ExamService) mutate(ctx context.Context, userID uuid.UUID, fn func(*assessment.Exam) error) (*assessment.Exam, error) {
	exam, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	fnErr := fn(exam)
	if fnErr != nil && !errors.Is(fnErr, assessment.ErrNoQuestions) {
		return nil, examError(fnErr)
	}

	if err := s.store.Save(ctx, userID, exam); err != nil {
		return nil, err
	}
	s.publish(ctx, userID, exam)

	if fnErr != nil {
		return nil, examError(fnErr)
	}
	return exam, nil
}

func (s *ExamService) publish(ctx context.Context, userID uuid.UUID, exam *assessment.Exam) {
	if s.publisher == nil {
		return
	}
	ev := models.ExamEvent{State: string(exam.State), ErrorMsg: exam.ErrorMsg}
	if exam.Scope != nil {
		ev.Scope = exam.Scope.Label
	}
	s.publisher.PublishUpdate(ctx, userID, models.WSMessage{Type: "exam_state", Payload: ev})
}

func examError(err error) error {
	switch {
	case errors.Is(err, assessment.ErrNoQuestions):
		return &ConflictError{Message: msgNoQuestions}
	case errors.Is(err, assessment.ErrInvalidOption):
		return &ValidationError{Fields: map[string]string{"option": "Option index out of range"}}
	case errors.Is(err, assessment.ErrInvalidTransition):
		return &ConflictError{Message: err.Error()}
	}
	return err
}

// userMessage picks the localized text for a failure shown to the learner.
func userMessage(err error) string {
	var aiErr *AIError
	if errors.As(err, &aiErr) {
		return aiErr.Message
	}
	return msgAIFailed
}
