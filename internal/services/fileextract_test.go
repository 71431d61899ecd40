package services

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestExtractNotes_TXT(t *testing.T) {
	s := NewFileExtractService()
	got, err := s.ExtractNotes("notes.TXT", []byte("  প্রথম লাইন  \r\n\r\n\r\n\r\nদ্বিতীয়\n"))
	if err != nil {
		t.Fatalf("ExtractNotes() error = %v", err)
	}
	if got != "প্রথম লাইন\n\nদ্বিতীয়" {
		t.Fatalf("text = %q", got)
	}
}

func TestExtractNotes_DOCX(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("word/document.xml")
	w.Write([]byte(`<w:document><w:body><w:p><w:r><w:t>Motion &amp; force</w:t></w:r></w:p><w:p><w:r><w:t>Newton</w:t></w:r></w:p></w:body></w:document>`))
	zw.Close()

	got, err := NewFileExtractService().ExtractNotes("chapter.docx", buf.Bytes())
	if err != nil {
		t.Fatalf("ExtractNotes() error = %v", err)
	}
	if got != "Motion & force\nNewton" {
		t.Fatalf("text = %q", got)
	}
}

func TestExtractNotes_Truncates(t *testing.T) {
	long := strings.Repeat("ক", maxNotesRunes+50)
	got, err := NewFileExtractService().ExtractNotes("a.txt", []byte(long))
	if err != nil {
		t.Fatalf("ExtractNotes() error = %v", err)
	}
	if utf8.RuneCountInString(got) != maxNotesRunes {
		t.Fatalf("runes = %d, want %d", utf8.RuneCountInString(got), maxNotesRunes)
	}
}

func TestExtractNotes_Rejects(t *testing.T) {
	s := NewFileExtractService()
	cases := map[string][]byte{
		"a.exe":  []byte("MZ"),
		"a.txt":  []byte("   \n  "),
		"b.txt":  {0xff, 0xfe},
		"a.pdf":  []byte("not a pdf"),
		"a.docx": []byte("not a zip"),
	}
	for name, data := range cases {
		if _, err := s.ExtractNotes(name, data); err == nil {
			t.Fatalf("ExtractNotes(%q) expected error", name)
		}
	}
}

func TestParseCaptionsXML(t *testing.T) {
	got, err := parseCaptionsXML([]byte(`<transcript><text start="0" dur="1">Hello &amp;amp; welcome</text><text start="1" dur="1"> </text><text start="2" dur="1">again</text></transcript>`))
	if err != nil {
		t.Fatalf("parseCaptionsXML() error = %v", err)
	}
	if got != "Hello & welcome again" {
		t.Fatalf("text = %q", got)
	}
}

func TestExtractCaptionURL(t *testing.T) {
	page := `..."captionTracks":[{"baseUrl":"https:\/\/www.youtube.com\/api\/timedtext?v=x&lang=bn","name":{}}],"audioTracks"...`
	got, err := extractCaptionURL(page)
	if err != nil {
		t.Fatalf("extractCaptionURL() error = %v", err)
	}
	if got != "https://www.youtube.com/api/timedtext?v=x&lang=bn" {
		t.Fatalf("url = %q", got)
	}
	if _, err := extractCaptionURL("<html></html>"); err == nil {
		t.Fatalf("expected error without caption tracks")
	}
}
