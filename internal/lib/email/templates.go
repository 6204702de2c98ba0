package email

import (
	"bytes"
	"embed"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/pkg/errors"
)

// Template names an embedded template pair (html and txt).
type Template string

const (
	TemplateContactNotification Template = "contact_notification"
)

//go:embed templates/*
var templateFS embed.FS

var (
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/*.html"))
	textTemplates = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/*.txt"))
)

// RenderHTML executes the HTML variant of name.
func RenderHTML(name Template, data any) (string, error) {
	var body bytes.Buffer
	if err := htmlTemplates.ExecuteTemplate(&body, string(name)+".html", data); err != nil {
		return "", errors.Wrapf(err, "failed to execute email template %s", name)
	}
	return body.String(), nil
}

// RenderText executes the plain text variant of name.
func RenderText(name Template, data any) (string, error) {
	var body bytes.Buffer
	if err := textTemplates.ExecuteTemplate(&body, string(name)+".txt", data); err != nil {
		return "", errors.Wrapf(err, "failed to execute email template %s", name)
	}
	return body.String(), nil
}
