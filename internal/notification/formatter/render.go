package formatter

import (
	"bytes"
	htmltemplate "html/template"
	texttemplate "text/template"
)

const htmlLayout = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
<h2>{{.Greeting}} {{.GreetingName}}!</h2>
{{range .Lines}}<p>{{.}}</p>
{{end}}{{if .ActionURL}}<p><a href="{{.ActionURL}}" style="background: #2d3748; color: #fff; padding: 8px 16px; text-decoration: none;">{{.ActionLabel}}</a></p>
{{end}}{{range .Outro}}<p>{{.}}</p>
{{end}}</body>
</html>
`

const textLayout = `{{.Greeting}} {{.GreetingName}}!

{{range .Lines}}{{.}}
{{end}}{{if .ActionURL}}
{{.ActionLabel}}: {{.ActionURL}}
{{end}}
{{range .Outro}}{{.}}
{{end}}`

var (
	htmlTemplate = htmltemplate.Must(htmltemplate.New("mail.html").Parse(htmlLayout))
	textTemplate = texttemplate.Must(texttemplate.New("mail.txt").Parse(textLayout))
)

// Render produces the HTML and plain text bodies of m.
func (m Message) Render() (htmlBody, textBody string, err error) {
	var h, t bytes.Buffer
	if err := htmlTemplate.Execute(&h, m); err != nil {
		return "", "", err
	}
	if err := textTemplate.Execute(&t, m); err != nil {
		return "", "", err
	}
	return h.String(), t.String(), nil
}
