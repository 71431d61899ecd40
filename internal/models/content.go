package models

import (
	"time"

	"github.com/google/uuid"
)

type BlogPost struct {
	ID       int    `json:"id" yaml:"id"`
	Title    string `json:"title" yaml:"title"`
	Excerpt  string `json:"excerpt" yaml:"excerpt"`
	Content  string `json:"content,omitempty" yaml:"content"`
	Category string `json:"category" yaml:"category"`
	Author   string `json:"author" yaml:"author"`
	Date     string `json:"date" yaml:"date"`
	Image    string `json:"image,omitempty" yaml:"image"`
}

type Inquiry struct {
	ID        uuid.UUID  `json:"id"`
	UserID    *uuid.UUID `json:"user_id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Subject   string     `json:"subject"`
	Message   string     `json:"message"`
	CreatedAt time.Time  `json:"created_at"`
}

type CreateInquiryRequest struct {
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}

type VideoItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
	Channel   string `json:"channel"`
	Duration  string `json:"duration"`
}

// VideoCategory is a home-feed row backed by a fixed search query.
type VideoCategory struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	SearchQuery string `json:"-" yaml:"search_query"`
}

type VideoDetails struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Channel     string `json:"channel"`
	Thumbnail   string `json:"thumbnail"`
	Description string `json:"description"`
	DurationSec int    `json:"duration_seconds"`
}

type Surah struct {
	Number                 int    `json:"number"`
	Name                   string `json:"name"`
	EnglishName            string `json:"englishName"`
	EnglishNameTranslation string `json:"englishNameTranslation"`
	RevelationType         string `json:"revelationType"`
	NumberOfAyahs          int    `json:"numberOfAyahs"`
	Arabic                 []Ayah `json:"arabic"`
	Bengali                []Ayah `json:"bengali"`
}

type Ayah struct {
	Number        int    `json:"number"`
	NumberInSurah int    `json:"numberInSurah"`
	Text          string `json:"text"`
}

type SurahInfographic struct {
	Summary string `json:"summary"`
	Stats   struct {
		Commands     int `json:"commands"`
		Prohibitions int `json:"prohibitions"`
	} `json:"stats"`
	Lessons []string `json:"lessons"`
	Virtues string   `json:"virtues"`
}

type SurahAnswer struct {
	Surah    int    `json:"surah"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type AskRequest struct {
	Question string `json:"question" validate:"required,max=2000"`
}

// QuranicElement is a chemical element the Quran names, with the verse that
// mentions it.
type QuranicElement struct {
	Name         string `json:"name" yaml:"name"`
	Symbol       string `json:"symbol" yaml:"symbol"`
	AtomicNumber int    `json:"atomic_number" yaml:"atomic_number"`
	SurahRef     string `json:"surah_ref" yaml:"surah_ref"`
	Fact         string `json:"fact" yaml:"fact"`
	Color        string `json:"color" yaml:"color"`
}

type SalahBenefit struct {
	Position string `json:"position" yaml:"position"`
	Benefits string `json:"benefits" yaml:"benefits"`
}

// TasbeehFigures is what the universe did while a tasbeeh session ran.
type TasbeehFigures struct {
	Seconds         int     `json:"seconds"`
	LightKm         int64   `json:"light_km"`
	Heartbeats      int     `json:"heartbeats"`
	EarthRotationKm float64 `json:"earth_rotation_km"`
}

// Roadmap is the BCS cadre guide shown from the academic section.
type Roadmap struct {
	Title     string         `json:"title" yaml:"title"`
	Tagline   string         `json:"tagline" yaml:"tagline"`
	Stages    []RoadmapStage `json:"stages" yaml:"stages"`
	Cadres    []Cadre        `json:"cadres" yaml:"cadres"`
	Salary    []SalaryGrade  `json:"salary" yaml:"salary"`
	Perks     string         `json:"perks" yaml:"perks"`
	RedFlags  []string       `json:"red_flags" yaml:"red_flags"`
	Questions []string       `json:"questions" yaml:"questions"`
}

type RoadmapStage struct {
	Step     int            `json:"step" yaml:"step"`
	Name     string         `json:"name" yaml:"name"`
	Marks    string         `json:"marks" yaml:"marks"`
	Note     string         `json:"note,omitempty" yaml:"note"`
	Subjects []StageSubject `json:"subjects,omitempty" yaml:"subjects"`
	Points   []string       `json:"points,omitempty" yaml:"points"`
}

type StageSubject struct {
	Name  string `json:"name" yaml:"name"`
	Marks string `json:"marks,omitempty" yaml:"marks"`
}

type Cadre struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

type SalaryGrade struct {
	Grade string `json:"grade" yaml:"grade"`
	Range string `json:"range" yaml:"range"`
}
