package workflow

import (
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var replyTemplates = template.Must(
	template.New("replies").
		Funcs(template.FuncMap{"join": strings.Join}).
		ParseFS(templateFS, "templates/*.tmpl"),
)

// replyData carries the slots the reply templates can fill.
type replyData struct {
	SenderName        string
	Position          string
	Alternatives      []string
	MatchedCandidates []string
	MissingFields     []string
}

func renderReply(id TemplateID, data replyData) (string, error) {
	var buf strings.Builder
	if err := replyTemplates.ExecuteTemplate(&buf, string(id)+".tmpl", data); err != nil {
		return "", fmt.Errorf("rendering %s template: %w", id, err)
	}
	return buf.String(), nil
}

// replySubject builds the subject line for a candidate or position reply.
func replySubject(id TemplateID, data replyData) string {
	switch id {
	case TemplateRequestCV:
		return "CV Needed - Your Application"
	case TemplateStrongMatch:
		return fmt.Sprintf("Your Application for %s - Next Steps", data.Position)
	case TemplatePotentialMatch:
		if data.Position != "" {
			return fmt.Sprintf("Your Application for %s - Under Review", data.Position)
		}
		return "Your Application - Under Review"
	case TemplateWeakWithAlternatives:
		return fmt.Sprintf("Alternative Opportunities - %s", data.Position)
	case TemplateWeakNoAlternatives:
		return fmt.Sprintf("Thank You for Your Application - %s", data.Position)
	case TemplateRequestJobInfo:
		return "Additional Information Needed - Your Job Posting"
	case TemplatePositionActive:
		return fmt.Sprintf("%s Position Active - %d Potential Candidates Identified", data.Position, len(data.MatchedCandidates))
	default:
		return "Your Message to Hellio HR"
	}
}
