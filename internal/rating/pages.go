package rating

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type confirmationPageData struct {
	Title    string
	Heading  string
	Message  string
	LeadName string
	Verdict  string
}

type errorPageData struct {
	Title   string
	Heading string
	Message string
}

func renderPage(name string, data any) (string, error) {
	tmpl, err := template.New(name).ParseFS(templateFS, "templates/"+name)
	if err != nil {
		return "", fmt.Errorf("parse page template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("execute page template %s: %w", name, err)
	}
	return buf.String(), nil
}

func renderConfirmationPage(leadName, verdict string) (string, error) {
	heading := "Thank you"
	message := "The lead was marked as " + verdict + ". The feedback has been recorded."
	return renderPage("rating_result.html", confirmationPageData{
		Title:    "Rating recorded",
		Heading:  heading,
		Message:  message,
		LeadName: leadName,
		Verdict:  verdict,
	})
}

func renderErrorPage(heading, message string) (string, error) {
	return renderPage("rating_error.html", errorPageData{
		Title:   "Rating link",
		Heading: heading,
		Message: message,
	})
}
