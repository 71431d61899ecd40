package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"sciencebindu-backend/internal/catalog"
	"sciencebindu-backend/internal/models"
)

const (
	badgeQuizzer   = "কুইজার"
	badgeGenius    = "জিনিয়াস"
	badgeNewMember = "নতুন সদস্য"

	quizHistorySheet = "Quiz History"
)

type profileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	UpdateProfile(ctx context.Context, p *models.Profile) error
}

type quizHistoryReader interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.QuizResult, error)
}

type bookmarkStore interface {
	Toggle(ctx context.Context, userID uuid.UUID, blogID int) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]int, error)
}

type inquiryWriter interface {
	Create(ctx context.Context, in *models.Inquiry) error
}

type ProfileService struct {
	users       profileStore
	results     quizHistoryReader
	bookmarks   bookmarkStore
	inquiries   inquiryWriter
	catalog     *catalog.Catalog
	mail        mailEnqueuer
	notifyEmail string
}

func NewProfileService(users profileStore, results quizHistoryReader, bookmarks bookmarkStore, inquiries inquiryWriter, cat *catalog.Catalog, mail mailEnqueuer, notifyEmail string) *ProfileService {
	return &ProfileService{
		users:       users,
		results:     results,
		bookmarks:   bookmarks,
		inquiries:   inquiries,
		catalog:     cat,
		mail:        mail,
		notifyEmail: notifyEmail,
	}
}

// Get loads the profile, quiz history and bookmarks concurrently.
func (s *ProfileService) Get(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	var (
		user      *models.User
		profile   *models.Profile
		history   []models.QuizResult
		bookmarks []int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		user, err = s.users.GetByID(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		profile, err = s.users.GetProfile(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		history, err = s.results.ListByUser(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		bookmarks, err = s.bookmarks.ListByUser(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Profile not found"}
		}
		return nil, err
	}

	if history == nil {
		history = []models.QuizResult{}
	}
	if bookmarks == nil {
		bookmarks = []int{}
	}

	avg := AverageScore(history)
	out := &models.UserProfile{
		Profile:      *profile,
		Email:        user.Email,
		QuizHistory:  history,
		Bookmarks:    bookmarks,
		SavedPosts:   []models.BlogPost{},
		AverageScore: avg,
		Badges:       Badges(len(history), avg),
	}
	for _, id := range bookmarks {
		if post, ok := s.catalog.Post(id); ok {
			saved := *post
			saved.Content = ""
			out.SavedPosts = append(out.SavedPosts, saved)
		}
	}
	return out, nil
}

// AverageScore is the rounded mean of each result's percentage, or 0 with no history.
func AverageScore(history []models.QuizResult) int {
	if len(history) == 0 {
		return 0
	}
	var sum float64
	for _, r := range history {
		if r.TotalQuestions > 0 {
			sum += float64(r.Score) / float64(r.TotalQuestions) * 100
		}
	}
	return int(math.Round(sum / float64(len(history))))
}

func Badges(quizCount, average int) []string {
	var badges []string
	if quizCount > 0 {
		badges = append(badges, badgeQuizzer)
	}
	if average >= 80 {
		badges = append(badges, badgeGenius)
	}
	return append(badges, badgeNewMember)
}

// Update applies the profile edit form. A blank birth year is stored as 0.
func (s *ProfileService) Update(ctx context.Context, userID uuid.UUID, req models.UpdateProfileRequest) (*models.Profile, error) {
	birthYear := 0
	if by := strings.TrimSpace(req.BirthYear); by != "" {
		n, err := strconv.Atoi(by)
		if err != nil {
			return nil, &ValidationError{Fields: map[string]string{"birth_year": "must be a year"}}
		}
		birthYear = n
	}

	p := &models.Profile{
		ID:         userID,
		Name:       strings.TrimSpace(req.Name),
		Profession: strings.TrimSpace(req.Profession),
		Address:    strings.TrimSpace(req.Address),
		Age:        req.Age,
		BirthYear:  birthYear,
	}
	if err := s.users.UpdateProfile(ctx, p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Profile not found"}
		}
		return nil, err
	}
	return p, nil
}

// ToggleBookmark flips the bookmark on a blog post and reports the new state.
func (s *ProfileService) ToggleBookmark(ctx context.Context, userID uuid.UUID, postID int) (bool, error) {
	if _, ok := s.catalog.Post(postID); !ok {
		return false, &NotFoundError{Message: "Blog post not found"}
	}
	return s.bookmarks.Toggle(ctx, userID, postID)
}

// SubmitInquiry stores a contact message. userID is nil for anonymous senders.
func (s *ProfileService) SubmitInquiry(ctx context.Context, userID *uuid.UUID, req models.CreateInquiryRequest) (*models.Inquiry, error) {
	in := &models.Inquiry{
		UserID:  userID,
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Subject: strings.TrimSpace(req.Subject),
		Message: strings.TrimSpace(req.Message),
	}
	if err := s.inquiries.Create(ctx, in); err != nil {
		return nil, err
	}

	if s.notifyEmail != "" {
		if err := s.mail.Enqueue(ctx, models.MailInquiry, s.notifyEmail, models.InquiryMail{Inquiry: *in}); err != nil {
			log.Printf("inquiry %s: failed to queue notification: %v", in.ID, err)
		}
	}
	return in, nil
}

func (s *ProfileService) QuizResults(ctx context.Context, userID uuid.UUID) ([]models.QuizResult, error) {
	return s.results.ListByUser(ctx, userID)
}

// ExportQuizResults renders the user's quiz history as an .xlsx workbook.
func (s *ProfileService) ExportQuizResults(ctx context.Context, userID uuid.UUID) ([]byte, error) {
	history, err := s.results.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return quizHistoryWorkbook(history)
}

func quizHistoryWorkbook(history []models.QuizResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", quizHistorySheet); err != nil {
		return nil, err
	}

	header := []interface{}{"তারিখ", "বিষয়", "লেভেল", "স্কোর", "মোট প্রশ্ন", "শতাংশ"}
	if err := f.SetSheetRow(quizHistorySheet, "A1", &header); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(quizHistorySheet, "A1", "F1", bold); err != nil {
		return nil, err
	}

	for i, r := range history {
		level := ""
		if r.Level != nil {
			level = *r.Level
		}
		pct := 0
		if r.TotalQuestions > 0 {
			pct = int(math.Round(float64(r.Score) / float64(r.TotalQuestions) * 100))
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{r.Date, r.Category, level, r.Score, r.TotalQuestions, pct}
		if err := f.SetSheetRow(quizHistorySheet, cell, &row); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(quizHistorySheet, "A", "C", 24); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
