// Package report renders workflow results and failures into the HTML
// documents delivered by mail. Formatting is pure: given the same input
// and the same clock reading, the output is byte-identical.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/dukex/dailybrief/pkg/workflow"
)

// Document is a rendered report, immutable once built.
type Document struct {
	Subject     string
	HTML        string
	GeneratedAt time.Time
}

// extractionKeys is the ordered list of output fields checked for a
// human-readable report body. First match wins; no match falls back to
// serializing the whole output mapping.
var extractionKeys = []string{"report", "text", "content"}

const dateLayout = "January 2, 2006"

var docTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; max-width: 640px; margin: 0 auto;">
<h1>{{.Title}}</h1>
{{.Body}}
<hr>
<p style="color: #888; font-size: 12px;">Generated at {{.GeneratedAt}} by dailybrief</p>
</body>
</html>
`))

type templateData struct {
	Title       string
	Body        template.HTML
	GeneratedAt string
}

// Format renders a succeeded workflow result into a report document.
func Format(result *workflow.Result, now time.Time) Document {
	var body template.HTML

	if result != nil {
		body = extractBody(result.Outputs)

		if metrics := formatMetrics(result); metrics != "" {
			body += template.HTML("\n<p style=\"color: #888;\">" + template.HTMLEscapeString(metrics) + "</p>")
		}
	} else {
		body = "<p>The workflow produced no output.</p>"
	}

	return render("Daily Report — "+now.Format(dateLayout), body, now)
}

// FormatFailure renders an error-notification document whose body carries
// the error message text.
func FormatFailure(err error, now time.Time) Document {
	body := template.HTML(
		"<p>The daily report could not be generated.</p>\n<pre>" +
			template.HTMLEscapeString(err.Error()) + "</pre>")

	return render("Daily Report failed — "+now.Format(dateLayout), body, now)
}

func render(title string, body template.HTML, now time.Time) Document {
	var buf bytes.Buffer

	err := docTemplate.Execute(&buf, templateData{
		Title:       title,
		Body:        body,
		GeneratedAt: now.UTC().Format("2006-01-02 15:04:05 UTC"),
	})
	if err != nil {
		// The template is static and the data is plain strings.
		panic(err)
	}

	return Document{Subject: title, HTML: buf.String(), GeneratedAt: now}
}

func extractBody(outputs map[string]any) template.HTML {
	for _, key := range extractionKeys {
		text, ok := outputs[key].(string)
		if !ok || text == "" {
			continue
		}

		escaped := template.HTMLEscapeString(text)

		return template.HTML("<p>" + strings.ReplaceAll(escaped, "\n", "<br>\n") + "</p>")
	}

	serialized, err := json.MarshalIndent(outputs, "", "  ")
	if err != nil {
		serialized = []byte(fmt.Sprintf("%v", outputs))
	}

	return template.HTML("<pre>" + template.HTMLEscapeString(string(serialized)) + "</pre>")
}

func formatMetrics(result *workflow.Result) string {
	if result.ElapsedTime == 0 && result.TotalTokens == 0 {
		return ""
	}

	return fmt.Sprintf("Completed in %.2fs using %d tokens.", result.ElapsedTime, result.TotalTokens)
}
