// Package emails renders transactional emails and broadcast campaigns.
package emails

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"github.com/nn1-dev/club-api/internal/pkg/mail"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

// Template names a transactional email.
type Template string

const (
	SignupConfirm              Template = "signup_confirm"
	SignupSuccess              Template = "signup_success"
	NewsletterConfirm          Template = "newsletter_confirm"
	AdminSignupSuccess         Template = "admin_signup_success"
	AdminSignupCancel          Template = "admin_signup_cancel"
	AdminNewsletterSubscribe   Template = "admin_newsletter_subscribe"
	AdminNewsletterUnsubscribe Template = "admin_newsletter_unsubscribe"
	AdminFeedback              Template = "admin_feedback"
)

var subjects = map[Template]string{
	SignupConfirm:              "Confirm your NN1 Dev Club ticket",
	SignupSuccess:              "Your NN1 Dev Club ticket 🎟️",
	NewsletterConfirm:          "Confirm your NN1 Dev Club newsletter subscription",
	AdminSignupSuccess:         "New signup 👍",
	AdminSignupCancel:          "Ticket cancelled 👎",
	AdminNewsletterSubscribe:   "New newsletter subscriber 📬",
	AdminNewsletterUnsubscribe: "Newsletter unsubscribe 📭",
	AdminFeedback:              "New feedback ✨",
}

// Subject returns the fixed subject line of t.
func (t Template) Subject() string { return subjects[t] }

// SignupConfirmData feeds SignupConfirm.
type SignupConfirmData struct {
	EventName string
	URL       string
}

// SignupSuccessData feeds SignupSuccess.
type SignupSuccessData struct {
	TicketURL       string
	EventName       string
	EventDate       string
	EventLocation   string
	InviteURLICal   string
	InviteURLGoogle string
}

// LinkData feeds NewsletterConfirm.
type LinkData struct {
	URL string
}

// AttendeeData feeds AdminSignupSuccess and AdminSignupCancel.
type AttendeeData struct {
	Name  string
	Email string
}

// EmailData feeds the admin newsletter notices.
type EmailData struct {
	Email string
}

// FeedbackData feeds AdminFeedback.
type FeedbackData struct {
	Name     string
	Feedback string
}

type buttonData struct {
	URL   string
	Label string
}

// Renderer executes the embedded templates.
type Renderer struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

// NewRenderer parses every embedded template.
func NewRenderer() (*Renderer, error) {
	funcs := map[string]interface{}{
		"year":   func() int { return time.Now().Year() },
		"button": func(url, label string) buttonData { return buttonData{URL: url, Label: label} },
	}
	html, err := htmltemplate.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse html templates: %w", err)
	}
	text, err := texttemplate.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("parse text templates: %w", err)
	}
	return &Renderer{html: html, text: text}, nil
}

// MustRenderer is NewRenderer for callers that treat a broken embed as a programming error.
func MustRenderer() *Renderer {
	r, err := NewRenderer()
	if err != nil {
		panic(err)
	}
	return r
}

// Render produces the HTML and text bodies of t.
func (r *Renderer) Render(t Template, data interface{}) (mail.Content, error) {
	if _, ok := subjects[t]; !ok {
		return mail.Content{}, fmt.Errorf("unknown email template %q", t)
	}
	var html, text bytes.Buffer
	if err := r.html.ExecuteTemplate(&html, string(t)+".html", data); err != nil {
		return mail.Content{}, fmt.Errorf("render %s html: %w", t, err)
	}
	if err := r.text.ExecuteTemplate(&text, string(t)+".txt", data); err != nil {
		return mail.Content{}, fmt.Errorf("render %s text: %w", t, err)
	}
	return mail.Content{HTML: html.String(), Text: text.String()}, nil
}

func (r *Renderer) renderCampaign(body htmltemplate.HTML) (string, error) {
	var buf bytes.Buffer
	if err := r.html.ExecuteTemplate(&buf, "campaign.html", struct{ Body htmltemplate.HTML }{body}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
