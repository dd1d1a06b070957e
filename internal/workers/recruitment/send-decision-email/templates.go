// internal/workers/recruitment/send-decision-email/templates.go
package senddecisionemail

import (
	"html"
	"strings"

	"hris-cloud/internal/models"
)

type template struct {
	subject string
	body    string
}

var templates = map[models.ApplicantStatus]template{
	models.StatusApproved: {
		subject: "Good News regarding your application for {{projectName}}",
		body: `<h1>Congratulations, {{candidateName}}!</h1>
<p>We are pleased to inform you that your application for <strong>{{projectName}}</strong> has been <strong>approved</strong> for the next stage.</p>
<p>Our team will contact you shortly to schedule an interview.</p>
<br>
<p>Best regards,<br>Recruitment Team</p>`,
	},
	models.StatusRejected: {
		subject: "Update on your application for {{projectName}}",
		body: `<p>Dear {{candidateName}},</p>
<p>Thank you for your interest in the <strong>{{projectName}}</strong> position.</p>
<p>After careful consideration, we regret to inform you that we will not be moving forward with your application at this time.</p>
<p>We wish you the best in your job search.</p>
<br>
<p>Best regards,<br>Recruitment Team</p>`,
	},
}

// render returns the subject and HTML body for a decision, or false when the
// status has no email.
func render(n models.DecisionNotification) (string, string, bool) {
	tmpl, ok := templates[n.Status]
	if !ok {
		return "", "", false
	}
	data := map[string]string{
		"candidateName": n.CandidateName,
		"projectName":   n.ProjectName,
	}
	subject := renderTemplate(tmpl.subject, data, false)
	body := renderTemplate(tmpl.body, data, true)
	return subject, body, true
}

// renderTemplate replaces {{key}} placeholders and drops any left unfilled.
func renderTemplate(tmpl string, data map[string]string, escape bool) string {
	result := tmpl
	for k, v := range data {
		if escape {
			v = html.EscapeString(v)
		}
		result = strings.ReplaceAll(result, "{{"+k+"}}", v)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}
	return result
}
