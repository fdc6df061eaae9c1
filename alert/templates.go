package alert

import (
	"fmt"
	"html"
	"strings"

	"wisejobs-widget/pkg/jobs"
)

// jobRowOpen starts each posting in an alert body.
const jobRowOpen = `<div class="job">`

func formatBody(list []jobs.Job) string {
	var b strings.Builder

	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("<meta charset=\"utf-8\">\n")
	b.WriteString("<style>\n")
	b.WriteString("body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 800px; margin: 0 auto; padding: 20px; }\n")
	b.WriteString(".job { margin-bottom: 16px; }\n")
	b.WriteString(".meta { color: #2f5c00; font-size: 0.9em; }\n")
	b.WriteString("a { color: #163300; font-weight: 600; text-decoration: none; }\n")
	b.WriteString("a:hover { text-decoration: underline; }\n")
	b.WriteString("</style>\n</head>\n<body>\n")

	if len(list) == 1 {
		b.WriteString("<h2>1 job posting</h2>\n")
	} else {
		fmt.Fprintf(&b, "<h2>%d job postings</h2>\n", len(list))
	}

	for _, j := range list {
		b.WriteString(jobRowOpen + "\n")
		fmt.Fprintf(&b, "<a href=\"%s\">%s</a><br>\n", html.EscapeString(j.Permalink), html.EscapeString(j.Title))
		fmt.Fprintf(&b, "<span class=\"meta\">%s | %s</span>\n", html.EscapeString(j.Team), html.EscapeString(j.Office))
		b.WriteString("</div>\n")
	}

	b.WriteString("</body>\n</html>")
	return b.String()
}
