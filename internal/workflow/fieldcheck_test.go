package workflow

import (
	"strings"
	"testing"
)

func TestInspectPostingSufficient(t *testing.T) {
	body := strings.Join([]string{
		"Hi team,",
		"Job Title: Senior Backend Engineer",
		"Required skills: Go, PostgreSQL, gRPC",
		"Salary: 90-120k, remote, Engineering department",
		"Education: BSc preferred",
	}, "\n")

	fields := InspectPosting("New opening", body)

	if !fields.Sufficient() {
		t.Fatalf("expected sufficient posting, got %+v", fields)
	}
	if fields.Title != "Senior Backend Engineer" {
		t.Fatalf("unexpected title %q", fields.Title)
	}
	if len(fields.MissingOptional) != 0 {
		t.Fatalf("no optional fields should be missing, got %v", fields.MissingOptional)
	}
}

func TestInspectPostingTitleFromSubject(t *testing.T) {
	fields := InspectPosting("Re: Fwd: Staff Site Reliability Engineer", "Must have 5 years of experience with Kubernetes.")

	if fields.Title != "Staff Site Reliability Engineer" {
		t.Fatalf("unexpected title %q", fields.Title)
	}
	if !fields.HasRequirements {
		t.Fatalf("requirements keyword not detected")
	}
}

func TestInspectPostingInsufficient(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		body    string
	}{
		{"vague subject, no labels", "Hiring", "we need someone good"},
		{"single word subject", "Engineer", "come work with us"},
		{"title but no requirements", "Opening", "Role: Gardener\nStart date is flexible."},
		{"requirements but no title", "Urgent", "Must have experience with plants."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := InspectPosting(tt.subject, tt.body)
			if fields.Sufficient() {
				t.Fatalf("expected insufficient posting, got %+v", fields)
			}
		})
	}
}

func TestInspectPostingMissingOptional(t *testing.T) {
	fields := InspectPosting("", "Title: Data Engineer\nRequirements: SQL, Python\nLocation: Berlin office")

	if !fields.Sufficient() {
		t.Fatalf("expected sufficient posting, got %+v", fields)
	}

	missing := strings.Join(fields.MissingOptional, ", ")
	for _, want := range []string{"salary range", "department", "education requirements"} {
		if !strings.Contains(missing, want) {
			t.Fatalf("expected %q in missing optional fields, got %v", want, fields.MissingOptional)
		}
	}
	if strings.Contains(missing, "location") {
		t.Fatalf("location was present in the posting, got %v", fields.MissingOptional)
	}
}
