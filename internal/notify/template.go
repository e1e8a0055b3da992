package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"intake/internal/models"
)

var leadTemplate = template.Must(template.New("lead").Parse(`<h2>New lead</h2>
<p><strong>Name:</strong> {{.Lead.Name}}</p>
<p><strong>Email:</strong> {{.Lead.Email}}</p>
<p><strong>Message:</strong></p>
<pre style="white-space:pre-wrap">{{.Lead.Message}}</pre>
{{- if .Lead.ID}}
<p><strong>Lead ID:</strong> {{.Lead.ID}}</p>
{{- end}}
{{- if .Lead.RemoteIP}}
<p><strong>IP:</strong> {{.Lead.RemoteIP}}</p>
{{- end}}
{{- if .Score}}
<p><strong>Score:</strong> {{.Score.Score}}/100 ({{.Score.Reason}})</p>
{{- end}}
`))

// LeadMessage renders the notification for lead. score may be nil.
func LeadMessage(from string, to []string, lead *models.Lead, score *models.LeadScore) (Message, error) {
	var buf bytes.Buffer
	err := leadTemplate.Execute(&buf, struct {
		Lead  *models.Lead
		Score *models.LeadScore
	}{lead, score})
	if err != nil {
		return Message{}, fmt.Errorf("failed to render lead email: %w", err)
	}

	return Message{
		From:    from,
		To:      to,
		Subject: "New lead: " + strings.Join(strings.Fields(lead.Name), " "),
		HTML:    buf.String(),
	}, nil
}
