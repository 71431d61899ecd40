package catalog

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"sciencebindu-backend/internal/models"
)

//go:embed data/*.yaml data/suggestions/*.yaml
var bundled embed.FS

// Catalog holds the static datasets served without a database: the academic
// class tree, quiz categories, blog posts and pre-authored chapter suggestions.
type Catalog struct {
	classes     []models.AcademicClass
	categories  []models.QuizCategory
	posts       []models.BlogPost
	videos      []models.VideoCategory
	elements    []models.QuranicElement
	salah       []models.SalahBenefit
	roadmap     *models.Roadmap
	suggestions map[string]*models.SuggestionData
}

type academicFile struct {
	Classes []models.AcademicClass `yaml:"classes"`
}

type quizFile struct {
	Categories []models.QuizCategory `yaml:"categories"`
}

type blogFile struct {
	Posts []models.BlogPost `yaml:"posts"`
}

type videoFile struct {
	Categories []models.VideoCategory `yaml:"categories"`
}

type toolsFile struct {
	Elements      []models.QuranicElement `yaml:"elements"`
	SalahBenefits []models.SalahBenefit   `yaml:"salah_benefits"`
}

// Load parses the datasets compiled into the binary.
func Load() (*Catalog, error) {
	sub, err := fs.Sub(bundled, "data")
	if err != nil {
		return nil, err
	}
	return LoadFS(sub)
}

// LoadFS parses datasets from fsys, which must contain academic.yaml,
// quizzes.yaml and blog.yaml. videos.yaml, tools.yaml, roadmap.yaml and files
// under suggestions/ are optional; suggestions are keyed by chapter id.
func LoadFS(fsys fs.FS) (*Catalog, error) {
	c := &Catalog{suggestions: make(map[string]*models.SuggestionData)}

	var academic academicFile
	if err := decodeFile(fsys, "academic.yaml", &academic); err != nil {
		return nil, err
	}
	var quizzes quizFile
	if err := decodeFile(fsys, "quizzes.yaml", &quizzes); err != nil {
		return nil, err
	}
	var blog blogFile
	if err := decodeFile(fsys, "blog.yaml", &blog); err != nil {
		return nil, err
	}
	var videos videoFile
	if err := decodeFile(fsys, "videos.yaml", &videos); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	var tools toolsFile
	if err := decodeFile(fsys, "tools.yaml", &tools); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	roadmap := &models.Roadmap{}
	if err := decodeFile(fsys, "roadmap.yaml", roadmap); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		roadmap = nil
	}
	c.classes = academic.Classes
	c.categories = quizzes.Categories
	c.posts = blog.Posts
	c.videos = videos.Categories
	c.elements = tools.Elements
	c.salah = tools.SalahBenefits
	c.roadmap = roadmap

	for _, cat := range c.categories {
		for _, q := range cat.Questions {
			if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
				return nil, fmt.Errorf("quiz %s question %d: correct answer %d out of range", cat.ID, q.ID, q.CorrectAnswer)
			}
		}
	}

	entries, err := fs.ReadDir(fsys, "suggestions")
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".yaml" {
			continue
		}
		data := &models.SuggestionData{}
		if err := decodeFile(fsys, path.Join("suggestions", e.Name()), data); err != nil {
			return nil, err
		}
		c.suggestions[strings.TrimSuffix(e.Name(), ".yaml")] = data
	}

	return c, nil
}

func decodeFile(fsys fs.FS, name string, out interface{}) error {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

func (c *Catalog) Classes() []models.AcademicClass {
	return c.classes
}

// ChapterRef is a chapter together with the names of its class and subject.
type ChapterRef struct {
	ClassName   string
	SubjectName string
	Chapter     models.AcademicChapter
}

// Chapter resolves a chapter by its full path through the class tree.
func (c *Catalog) Chapter(classID, subjectID, chapterID string) (*ChapterRef, bool) {
	for _, cl := range c.classes {
		if cl.ID != classID {
			continue
		}
		for _, s := range cl.Subjects {
			if s.ID != subjectID {
				continue
			}
			for _, ch := range s.Chapters {
				if ch.ID == chapterID {
					return &ChapterRef{ClassName: cl.Name, SubjectName: s.Name, Chapter: ch}, true
				}
			}
		}
	}
	return nil, false
}

// StaticSuggestion returns a pre-authored suggestion set for the chapter, if one is bundled.
// The returned value is a copy and may be mutated by the caller.
func (c *Catalog) StaticSuggestion(chapterID string) (*models.SuggestionData, bool) {
	s, ok := c.suggestions[chapterID]
	if !ok {
		return nil, false
	}
	cp := *s
	cp.CQs = append([]models.CQ(nil), s.CQs...)
	cp.MCQs = append([]models.MCQ(nil), s.MCQs...)
	cp.Knowledge = append([]models.Knowledge(nil), s.Knowledge...)
	return &cp, true
}

// Categories lists quiz categories without their question sets.
func (c *Catalog) Categories() []models.QuizCategory {
	out := make([]models.QuizCategory, len(c.categories))
	for i, cat := range c.categories {
		cat.Questions = nil
		out[i] = cat
	}
	return out
}

func (c *Catalog) Category(id string) (*models.QuizCategory, bool) {
	for i := range c.categories {
		if c.categories[i].ID == id {
			return &c.categories[i], true
		}
	}
	return nil, false
}

// Posts lists blog posts without their bodies.
func (c *Catalog) Posts() []models.BlogPost {
	out := make([]models.BlogPost, len(c.posts))
	for i, p := range c.posts {
		p.Content = ""
		out[i] = p
	}
	return out
}

func (c *Catalog) Post(id int) (*models.BlogPost, bool) {
	for i := range c.posts {
		if c.posts[i].ID == id {
			return &c.posts[i], true
		}
	}
	return nil, false
}

func (c *Catalog) VideoCategories() []models.VideoCategory {
	return c.videos
}

func (c *Catalog) VideoCategory(id string) (*models.VideoCategory, bool) {
	for i := range c.videos {
		if c.videos[i].ID == id {
			return &c.videos[i], true
		}
	}
	return nil, false
}

func (c *Catalog) QuranicElements() []models.QuranicElement {
	return c.elements
}

func (c *Catalog) SalahBenefits() []models.SalahBenefit {
	return c.salah
}

// Roadmap returns the BCS guide; ok is false when none is bundled.
func (c *Catalog) Roadmap() (*models.Roadmap, bool) {
	return c.roadmap, c.roadmap != nil
}
