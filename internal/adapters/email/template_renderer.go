package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	texttemplate "text/template"

	"schoolevents/internal/domain"
)

//go:embed templates/*
var templateFS embed.FS

// templateFuncs are available to every email template.
var templateFuncs = map[string]any{
	"statusLabel": statusLabel,
}

// statusLabel turns a request status into the wording used in student emails.
func statusLabel(s domain.RequestStatus) string {
	switch s {
	case domain.RequestApproved:
		return "approved"
	case domain.RequestRejected:
		return "not approved"
	case domain.RequestEnrolled:
		return "confirmed"
	case domain.RequestWithdrawn:
		return "withdrawn"
	default:
		return strings.ToLower(string(s))
	}
}

// templateRenderer implements domain.EmailTemplateRenderer using embedded template files.
type templateRenderer struct {
	html *template.Template
	text *texttemplate.Template
}

// NewTemplateRenderer parses the embedded templates folder once. HTML files use html/template,
// subject and text files use text/template.
func NewTemplateRenderer() (domain.EmailTemplateRenderer, error) {
	html, err := template.New("").Funcs(template.FuncMap(templateFuncs)).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse html templates: %w", err)
	}
	text, err := texttemplate.New("").Funcs(texttemplate.FuncMap(templateFuncs)).ParseFS(templateFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("parse text templates: %w", err)
	}
	return &templateRenderer{html: html, text: text}, nil
}

// Render executes the named template (e.g. "participation_decision") with data and returns subject, html, and text bodies.
func (r *templateRenderer) Render(templateName string, data any) (subject, htmlBody, textBody string, err error) {
	subject, err = execute(r.text, templateName+"_subject.txt", data)
	if err != nil {
		return "", "", "", fmt.Errorf("render subject: %w", err)
	}
	htmlBody, err = execute(r.html, templateName+".html", data)
	if err != nil {
		return "", "", "", fmt.Errorf("render html: %w", err)
	}
	textBody, err = execute(r.text, templateName+".txt", data)
	if err != nil {
		return "", "", "", fmt.Errorf("render text: %w", err)
	}
	return strings.TrimSpace(subject), htmlBody, textBody, nil
}

// templateSet is satisfied by both html/template and text/template.
type templateSet interface {
	ExecuteTemplate(w io.Writer, name string, data any) error
}

func execute(set templateSet, name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := set.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
