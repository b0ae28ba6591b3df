package email

import (
	"strings"
	"testing"
)

func TestNewLeadTemplateCarriesRatingLinks(t *testing.T) {
	html, err := renderEmailTemplate("new_lead.html", newLeadEmailData{
		baseEmailData: baseEmailData{Title: "New lead", Heading: "New lead received"},
		NewLeadData: NewLeadData{
			LeadName:       "Jane Visser",
			FormName:       "Solar Panels Q3",
			Email:          "jane@example.com",
			Phone:          "+31612345678",
			QualifiedURL:   "https://app.example.com/r/tok-a?rating=qualified",
			UnqualifiedURL: "https://app.example.com/r/tok-a?rating=unqualified",
		},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{
		"Jane Visser",
		"Solar Panels Q3",
		"https://app.example.com/r/tok-a?rating=qualified",
		"https://app.example.com/r/tok-a?rating=unqualified",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered email missing %q", want)
		}
	}
}

func TestAssignmentTemplateCarriesPortalLink(t *testing.T) {
	html, err := renderEmailTemplate("assignment.html", assignmentEmailData{
		baseEmailData: baseEmailData{Title: "Lead assigned", Heading: "A lead was assigned to you"},
		AssignmentData: AssignmentData{
			LeadName:  "Jan de Boer",
			FormName:  "Heat Pumps",
			PortalURL: "https://app.example.com/portal?token=tok-b",
		},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(html, "https://app.example.com/portal?token=tok-b") {
		t.Fatal("rendered email missing portal link")
	}
}
