package services

import (
	"context"
	"fmt"
	"strings"

	"sciencebindu-backend/internal/models"
)

const suggestionSchemaJSON = `{
  "type": "object",
  "required": ["summary", "cqs", "mcqs", "knowledge"],
  "properties": {
    "summary": {"type": "string"},
    "cqs": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["stem", "questions"],
        "properties": {
          "id": {"type": ["integer", "string"]},
          "stem": {"type": "string"},
          "questions": {
            "type": "object",
            "required": ["a", "b", "c", "d"],
            "properties": {
              "a": {"type": "string"}, "b": {"type": "string"},
              "c": {"type": "string"}, "d": {"type": "string"}
            }
          },
          "solutions": {
            "type": "object",
            "properties": {"c": {"type": "string"}, "d": {"type": "string"}}
          },
          "boardRef": {"type": "string"},
          "importance": {"type": "integer", "minimum": 0, "maximum": 100}
        }
      }
    },
    "mcqs": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["question", "options", "correct"],
        "properties": {
          "id": {"type": ["integer", "string"]},
          "question": {"type": "string", "minLength": 1},
          "options": {"type": "array", "items": {"type": "string"}, "minItems": 4, "maxItems": 4},
          "correct": {"type": "integer", "minimum": 0, "maximum": 3},
          "explanation": {"type": "string"}
        }
      }
    },
    "knowledge": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["q", "a"],
        "properties": {
          "q": {"type": "string"},
          "a": {"type": "string"},
          "type": {"enum": ["Gyan", "Anudhabon"]}
        }
      }
    }
  }
}`

var suggestionSchema = mustSchema(suggestionSchemaJSON)

// SuggestionService asks the model for a chapter's exam-prep suggestion set.
type SuggestionService struct {
	gemini *GeminiService
	model  string
}

func NewSuggestionService(gemini *GeminiService, model string) *SuggestionService {
	return &SuggestionService{gemini: gemini, model: model}
}

// Generate returns schema-checked content for the chapter. notes, when
// non-empty, is learner-supplied chapter text to ground the questions in.
func (s *SuggestionService) Generate(ctx context.Context, className, subjectName, chapterName, notes string) (*models.SuggestionData, error) {
	prompt := buildSuggestionPrompt(className, subjectName, chapterName, notes)

	data := &models.SuggestionData{}
	err := s.gemini.GenerateJSON(ctx, GenerateRequest{Model: s.model, Prompt: prompt}, suggestionSchema, data)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func buildSuggestionPrompt(className, subjectName, chapterName, notes string) string {
	var b strings.Builder

	b.WriteString("Create a detailed academic suggestion for Bangladeshi BCS/Job Preparation Student.\n")
	fmt.Fprintf(&b, "Class: %s\nSubject: %s\nTopic: %s\n\n", className, subjectName, chapterName)

	b.WriteString(`Output must be a valid JSON object with this exact structure:
{
  "summary": "2-3 sentences summary of the topic in Bengali",
  "cqs": [
    {
      "id": 1,
      "stem": "A creative stem (Uddipok) relevant to BCS written exam in Bengali.",
      "questions": {
        "a": "Knowledge question (Gyan) in Bengali",
        "b": "Comprehension question (Anudhabon) in Bengali",
        "c": "Analytical question in Bengali",
        "d": "Higher Order Thinking question in Bengali"
      },
      "solutions": {
        "c": "Brief hint for answer c in Bengali",
        "d": "Brief hint for answer d in Bengali"
      },
      "boardRef": "BCS or Bank Job Year (e.g. 40th BCS) or 'Very Important'",
      "importance": 95
    }
  ],
  "mcqs": [
    {
      "id": 1,
      "question": "MCQ Question in Bengali",
      "options": ["Op1", "Op2", "Op3", "Op4"],
      "correct": 0,
      "explanation": "Why correct in Bengali"
    }
  ],
  "knowledge": [
    { "q": "Short question?", "a": "Short Answer", "type": "Gyan" }
  ]
}

`)
	b.WriteString("Generate at least 2 Written Questions (CQs), 5 MCQs, and 3 Knowledge questions.\n")
	b.WriteString("Ensure content is strictly relevant to BCS Preliminary and Written syllabus.\n")

	if notes = strings.TrimSpace(notes); notes != "" {
		b.WriteString("\nBase the questions on the following chapter notes supplied by the student:\n---BEGIN NOTES---\n")
		b.WriteString(notes)
		b.WriteString("\n---END NOTES---\n")
	}

	return b.String()
}
