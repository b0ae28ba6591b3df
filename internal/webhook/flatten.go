package webhook

import (
	"strings"

	"leadsignal_backend/internal/metaapi"
)

// FlattenFields collapses the raw field_data array to a name→value map.
// Multi-value answers are joined with ", " to stay readable in the
// dashboard and notification emails.
func FlattenFields(fields []metaapi.LeadField) map[string]string {
	flat := make(map[string]string, len(fields))
	for _, f := range fields {
		flat[strings.ToLower(f.Name)] = strings.Join(f.Values, ", ")
	}
	return flat
}

// ExtractContact pulls the contact columns out of a flattened field map.
// full_name wins over the first/last pair; phone_number over phone.
func ExtractContact(flat map[string]string) (fullName, email, phoneNumber string) {
	fullName = flat["full_name"]
	if fullName == "" {
		fullName = strings.TrimSpace(flat["first_name"] + " " + flat["last_name"])
	}

	email = flat["email"]

	phoneNumber = flat["phone_number"]
	if phoneNumber == "" {
		phoneNumber = flat["phone"]
	}
	return fullName, email, phoneNumber
}

// FallbackFormName is used when the form name cannot be fetched from the
// platform. The last characters of the id keep distinct forms tellable
// apart.
func FallbackFormName(formID string) string {
	suffix := formID
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	return "Form " + suffix
}
