package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile is the learner-facing record created at sign-up. Its ID equals the user ID.
type Profile struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Age        int       `json:"age"`
	BirthYear  int       `json:"birth_year"`
	Profession string    `json:"profession"`
	Address    string    `json:"address"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UserProfile aggregates a profile with its quiz history and bookmarks.
type UserProfile struct {
	Profile
	Email        string       `json:"email"`
	QuizHistory  []QuizResult `json:"quiz_history"`
	Bookmarks    []int        `json:"bookmarks"`
	SavedPosts   []BlogPost   `json:"saved_posts"`
	AverageScore int          `json:"average_score"`
	Badges       []string     `json:"badges"`
}

type SignUpRequest struct {
	Name       string `json:"name" validate:"required,max=120"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6"`
	Age        int    `json:"age" validate:"required,min=1,max=120"`
	BirthYear  int    `json:"birth_year" validate:"required,min=1900"`
	Profession string `json:"profession" validate:"required,max=120"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type PasswordResetConfirm struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

// UpdateProfileRequest mirrors the profile edit form; birth_year arrives as text.
type UpdateProfileRequest struct {
	Name       string `json:"name" validate:"required,max=120"`
	Profession string `json:"profession" validate:"max=120"`
	Address    string `json:"address" validate:"max=255"`
	Age        int    `json:"age" validate:"min=0,max=120"`
	BirthYear  string `json:"birth_year" validate:"omitempty,numeric,len=4"`
}
