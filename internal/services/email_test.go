package services

import (
	"encoding/json"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"sciencebindu-backend/internal/models"
)

type capturedMail struct {
	addr string
	to   []string
	msg  string
}

func newCapturingEmail(sendErr error) (*EmailService, *[]capturedMail) {
	var sent []capturedMail
	s := NewEmailService("smtp.example.com", "587", "mailer", "secret", "noreply@sciencebindu.app", "https://sciencebindu.app")
	s.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		sent = append(sent, capturedMail{addr: addr, to: to, msg: string(msg)})
		return sendErr
	}
	return s, &sent
}

func mailJob(t *testing.T, typ, to string, payload interface{}) models.MailJob {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return models.MailJob{Type: typ, To: to, Payload: raw}
}

func TestDeliver_PasswordReset(t *testing.T) {
	s, sent := newCapturingEmail(nil)

	if err := s.Deliver(mailJob(t, models.MailPasswordReset, "a@b.com", models.PasswordResetMail{Token: "tok123"})); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if len(*sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(*sent))
	}
	m := (*sent)[0]
	if m.addr != "smtp.example.com:587" || m.to[0] != "a@b.com" {
		t.Fatalf("envelope = %+v", m)
	}
	if !strings.Contains(m.msg, "https://sciencebindu.app/reset-password?token=tok123") {
		t.Fatalf("reset link missing from body")
	}
}

func TestDeliver_InquiryEscapesUserInput(t *testing.T) {
	s, sent := newCapturingEmail(nil)
	in := models.Inquiry{Name: "<script>", Email: "x@y.com", Subject: "Hi", Message: "a & b"}

	if err := s.Deliver(mailJob(t, models.MailInquiry, "admin@sciencebindu.app", models.InquiryMail{Inquiry: in})); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	msg := (*sent)[0].msg
	if strings.Contains(msg, "<script>") || !strings.Contains(msg, "&lt;script&gt;") || !strings.Contains(msg, "a &amp; b") {
		t.Fatalf("inquiry body not escaped:\n%s", msg)
	}
}

func TestDeliver_Digest(t *testing.T) {
	s, sent := newCapturingEmail(nil)
	d := models.WeeklyDigestMail{Name: "Rahim", QuizCount: 3, AverageScore: 67}

	if err := s.Deliver(mailJob(t, models.MailWeeklyDigest, "r@b.com", d)); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	msg := (*sent)[0].msg
	if !strings.Contains(msg, "3 টি কুইজ") || !strings.Contains(msg, "67%") || !strings.Contains(msg, "Rahim") {
		t.Fatalf("digest body = %s", msg)
	}
}

func TestDeliver_Errors(t *testing.T) {
	s, sent := newCapturingEmail(errors.New("connection refused"))

	if err := s.Deliver(models.MailJob{Type: "newsletter", To: "a@b.com"}); err == nil {
		t.Fatalf("expected error for unknown type")
	}
	if err := s.Deliver(models.MailJob{Type: models.MailPasswordReset, To: "a@b.com", Payload: json.RawMessage(`[`)}); err == nil {
		t.Fatalf("expected error for bad payload")
	}
	if len(*sent) != 0 {
		t.Fatalf("nothing should be sent for invalid jobs")
	}

	err := s.Deliver(mailJob(t, models.MailPasswordReset, "a@b.com", models.PasswordResetMail{Token: "t"}))
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("err = %v, want smtp failure", err)
	}
}

func TestEmailService_DevModeDoesNotSend(t *testing.T) {
	s := NewEmailService("", "587", "", "", "noreply@sciencebindu.app", "http://localhost:5173")
	s.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		t.Fatalf("sendMail called in dev mode")
		return nil
	}
	if err := s.SendPasswordResetEmail("a@b.com", "tok"); err != nil {
		t.Fatalf("SendPasswordResetEmail() error = %v", err)
	}
}
