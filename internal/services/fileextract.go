package services

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// maxNotesRunes caps how much uploaded text is forwarded into a prompt.
const maxNotesRunes = 20000

type FileExtractService struct {
	extractors map[string]func([]byte) (string, error)
}

func NewFileExtractService() *FileExtractService {
	return &FileExtractService{
		extractors: map[string]func([]byte) (string, error){
			".txt":  plainText,
			".pdf":  pdfText,
			".docx": docxText,
		},
	}
}

// ExtractNotes returns normalized text from an uploaded .pdf, .docx or .txt
// file, truncated to maxNotesRunes.
func (s *FileExtractService) ExtractNotes(filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	extract, ok := s.extractors[ext]
	if !ok {
		return "", fmt.Errorf("unsupported file type %q", ext)
	}

	raw, err := extract(data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", filename, err)
	}
	text := tidyLines(raw)
	if text == "" {
		return "", fmt.Errorf("%s: no extractable text", filename)
	}

	if utf8.RuneCountInString(text) > maxNotesRunes {
		text = string([]rune(text)[:maxNotesRunes])
	}
	return text, nil
}

func plainText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errors.New("text is not valid UTF-8")
	}
	return string(data), nil
}

func pdfText(data []byte) (text string, err error) {
	// The pdf reader panics on some malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unreadable pdf: %v", r)
		}
	}()

	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := doc.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func docxText(data []byte) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	body, err := archive.Open("word/document.xml")
	if err != nil {
		return "", errors.New("docx has no word/document.xml")
	}
	defer body.Close()
	return wordprocessingText(body)
}

// wordprocessingText walks a WordprocessingML body, keeping <w:t> runs and
// turning paragraph ends, breaks and tabs into whitespace.
func wordprocessingText(r io.Reader) (string, error) {
	var (
		out    strings.Builder
		inText bool
	)
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return out.String(), nil
		}
		if err != nil {
			return "", fmt.Errorf("decode document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "br", "cr":
				out.WriteByte('\n')
			case "tab":
				out.WriteByte('\t')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				out.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				out.Write(t)
			}
		}
	}
}

// tidyLines trims every line and keeps at most one blank line between
// paragraphs.
func tidyLines(s string) string {
	s = strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(s)

	var kept []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" && len(kept) > 0 && kept[len(kept)-1] == "" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
