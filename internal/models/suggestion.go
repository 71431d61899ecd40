package models

import (
	"bytes"
	"encoding/json"
)

// ItemID accepts either a JSON string or number. Generated content numbers its
// items while bundled content uses string keys.
type ItemID string

func (id *ItemID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ItemID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ItemID(n.String())
	return nil
}

// SuggestionData is generated per chapter selection and never persisted.
type SuggestionData struct {
	Summary   string      `json:"summary" yaml:"summary"`
	CQs       []CQ        `json:"cqs" yaml:"cqs"`
	MCQs      []MCQ       `json:"mcqs" yaml:"mcqs"`
	Knowledge []Knowledge `json:"knowledge" yaml:"knowledge"`
}

// CQ is a constructed-response question group.
type CQ struct {
	ID         ItemID      `json:"id" yaml:"id"`
	Stem       string      `json:"stem" yaml:"stem"`
	Img        string      `json:"img,omitempty" yaml:"img"`
	Questions  CQQuestions `json:"questions" yaml:"questions"`
	Solutions  CQSolutions `json:"solutions" yaml:"solutions"`
	BoardRef   string      `json:"boardRef" yaml:"board_ref"`
	Importance int         `json:"importance" yaml:"importance"`
}

type CQQuestions struct {
	A string `json:"a" yaml:"a"`
	B string `json:"b" yaml:"b"`
	C string `json:"c" yaml:"c"`
	D string `json:"d" yaml:"d"`
}

type CQSolutions struct {
	C string `json:"c" yaml:"c"`
	D string `json:"d" yaml:"d"`
}

type MCQ struct {
	ID          ItemID   `json:"id" yaml:"id"`
	Question    string   `json:"question" yaml:"question"`
	Options     []string `json:"options" yaml:"options"`
	Correct     int      `json:"correct" yaml:"correct"`
	Explanation string   `json:"explanation" yaml:"explanation"`
}

type Knowledge struct {
	Q    string `json:"q" yaml:"q"`
	A    string `json:"a" yaml:"a"`
	Type string `json:"type" yaml:"type"` // "Gyan" | "Anudhabon"
}
