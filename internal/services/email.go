package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net/smtp"
	"strings"

	"sciencebindu-backend/internal/models"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Every mail shares the branded layout; each type only defines "content".
const mailLayout = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: 'Hind Siliguri', 'Segoe UI', Arial, sans-serif; margin: 0; padding: 0; background-color: #f8fafc;">
  <div style="max-width: 480px; margin: 40px auto; background: white; border-radius: 12px; overflow: hidden;">
    <div style="background: #0f172a; padding: 32px; text-align: center;">
      <h1 style="color: white; margin: 0; font-size: 24px;">Science Bindu</h1>
      <p style="color: rgba(255,255,255,0.7); margin: 8px 0 0; font-size: 14px;">বিজ্ঞান ও দ্বীনের আলোকবর্তিকা</p>
    </div>
    <div style="padding: 32px;">
      <h2 style="margin: 0 0 16px; font-size: 20px; color: #1e293b;">{{.Heading}}</h2>
      {{template "content" .}}
    </div>
  </div>
</body>
</html>`

const buttonStyle = `display: inline-block; background: #059669; color: white; text-decoration: none; padding: 12px 32px; border-radius: 8px; font-weight: 600;`

var mailTemplates = map[string]*template.Template{
	models.MailPasswordReset: mailTemplate(`
<p>আপনার অ্যাকাউন্টের পাসওয়ার্ড রিসেট করার অনুরোধ পেয়েছি। নতুন পাসওয়ার্ড দিতে নিচের বাটনে ক্লিক করুন।</p>
<a href="{{.Link}}" style="` + buttonStyle + `">পাসওয়ার্ড রিসেট</a>
<p style="color: #94a3b8; font-size: 12px;">আপনি অনুরোধ না করে থাকলে এই ইমেইলটি উপেক্ষা করুন। লিঙ্কটি ১ ঘণ্টা পর্যন্ত কার্যকর থাকবে।</p>`),

	models.MailInquiry: mailTemplate(`
<p><strong>{{.Inquiry.Name}}</strong> &lt;{{.Inquiry.Email}}&gt;</p>
<p>{{.Inquiry.Subject}}</p>
<p style="white-space: pre-wrap;">{{.Inquiry.Message}}</p>`),

	models.MailWeeklyDigest: mailTemplate(`
<p>আসসালামু আলাইকুম {{.Digest.Name}}! গত সপ্তাহে আপনি {{.Digest.QuizCount}} টি কুইজ সম্পন্ন করেছেন। গড় স্কোর {{.Digest.AverageScore}}%।</p>
<a href="{{.Link}}" style="` + buttonStyle + `">আবার অনুশীলন করুন</a>`),
}

func mailTemplate(content string) *template.Template {
	layout := template.Must(template.New("layout").Parse(mailLayout))
	template.Must(layout.New("content").Parse(content))
	return layout
}

type mailView struct {
	Heading string
	Link    string
	Inquiry models.Inquiry
	Digest  models.WeeklyDigestMail
}

// EmailService renders queued mail jobs and sends them over SMTP. Without SMTP
// credentials it only logs what it would have sent.
type EmailService struct {
	addr        string
	auth        smtp.Auth
	from        string
	frontendURL string
	devMode     bool
	sendMail    sendMailFunc
}

func NewEmailService(host, port, user, pass, from, frontendURL string) *EmailService {
	s := &EmailService{
		addr:        host + ":" + port,
		from:        from,
		frontendURL: frontendURL,
		devMode:     host == "" || user == "",
		sendMail:    smtp.SendMail,
	}
	if s.devMode {
		log.Println("⚠ Email service running in DEV MODE (logging to console)")
	} else {
		s.auth = smtp.PlainAuth("", user, pass, host)
	}
	return s
}

// Deliver renders and sends a queued mail job.
func (s *EmailService) Deliver(job models.MailJob) error {
	switch job.Type {
	case models.MailPasswordReset:
		var p models.PasswordResetMail
		if err := decodeMailPayload(job, &p); err != nil {
			return err
		}
		return s.SendPasswordResetEmail(job.To, p.Token)
	case models.MailInquiry:
		var p models.InquiryMail
		if err := decodeMailPayload(job, &p); err != nil {
			return err
		}
		return s.SendInquiryNotification(job.To, p.Inquiry)
	case models.MailWeeklyDigest:
		var p models.WeeklyDigestMail
		if err := decodeMailPayload(job, &p); err != nil {
			return err
		}
		return s.SendWeeklyDigestEmail(job.To, p)
	default:
		return fmt.Errorf("unknown mail type: %s", job.Type)
	}
}

func decodeMailPayload(job models.MailJob, dst interface{}) error {
	if err := json.Unmarshal(job.Payload, dst); err != nil {
		return fmt.Errorf("invalid %s payload: %w", job.Type, err)
	}
	return nil
}

func (s *EmailService) SendPasswordResetEmail(to, token string) error {
	return s.send(to, "Science Bindu: পাসওয়ার্ড রিসেট", models.MailPasswordReset, mailView{
		Heading: "পাসওয়ার্ড রিসেট করুন",
		Link:    s.frontendURL + "/reset-password?token=" + token,
	})
}

func (s *EmailService) SendInquiryNotification(to string, in models.Inquiry) error {
	return s.send(to, "New inquiry: "+in.Subject, models.MailInquiry, mailView{
		Heading: "নতুন বার্তা",
		Inquiry: in,
	})
}

func (s *EmailService) SendWeeklyDigestEmail(to string, d models.WeeklyDigestMail) error {
	return s.send(to, "Science Bindu: আপনার সাপ্তাহিক অগ্রগতি", models.MailWeeklyDigest, mailView{
		Heading: "সাপ্তাহিক অগ্রগতি",
		Link:    s.frontendURL,
		Digest:  d,
	})
}

func (s *EmailService) send(to, subject, kind string, view mailView) error {
	var body bytes.Buffer
	if err := mailTemplates[kind].Execute(&body, view); err != nil {
		return fmt.Errorf("render %s mail: %w", kind, err)
	}

	if s.devMode {
		log.Printf("📧 [DEV EMAIL] To: %s | Subject: %s", to, subject)
		log.Printf("📧 Body:\n%s", body.String())
		return nil
	}

	header := strings.Join([]string{
		"From: " + s.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
	}, "\r\n")
	msg := append([]byte(header+"\r\n\r\n"), body.Bytes()...)

	if err := s.sendMail(s.addr, s.auth, s.from, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	log.Printf("📧 Email sent to %s: %s", to, subject)
	return nil
}
