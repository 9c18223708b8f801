package heuristic

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sentinelnexus/guard/internal/models"
)

// scanHTML inspects HTML passed as web-mode input. Real web scans run as an
// asynchronous backend job against a live target; offline we can only look at
// markup the caller already has. A bare URL (no markup) yields no findings.
func scanHTML(text string) []models.Finding {
	if !strings.Contains(text, "<") {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return nil
	}

	var findings []models.Finding
	add := func(findingType string, severity models.Severity, title, description, evidence string) {
		findings = append(findings, models.Finding{
			ID:          strconv.Itoa(len(findings)),
			Domain:      models.DomainWebSecurity,
			FindingType: findingType,
			Severity:    severity,
			Title:       title,
			Description: description,
			Evidence:    evidence,
		})
	}

	doc.Find("form").Each(func(i int, form *goquery.Selection) {
		action, _ := form.Attr("action")

		if form.Find(`input[type="password"]`).Length() > 0 && strings.HasPrefix(action, "http://") {
			add("plaintext_credential_post", models.SeverityCritical,
				"Credentials Posted Over HTTP",
				"Form with a password field submits to a plaintext http:// action.",
				action)
		}

		// скрытый csrf-токен обычно называется csrf/token/authenticity
		hasToken := false
		form.Find(`input[type="hidden"]`).Each(func(_ int, input *goquery.Selection) {
			name, _ := input.Attr("name")
			lower := strings.ToLower(name)
			if strings.Contains(lower, "csrf") || strings.Contains(lower, "token") || strings.Contains(lower, "authenticity") {
				hasToken = true
			}
		})
		if !hasToken {
			add("missing_csrf_token", models.SeverityMedium,
				"Form Without CSRF Token",
				"Form #"+strconv.Itoa(i+1)+" has no hidden anti-CSRF token input.",
				action)
		}
	})

	doc.Find("script[src]").Each(func(_ int, script *goquery.Selection) {
		src, _ := script.Attr("src")
		if strings.HasPrefix(src, "http://") {
			add("mixed_content_script", models.SeverityMedium,
				"Script Loaded Over HTTP",
				"External script loaded without TLS can be tampered with in transit.",
				src)
		}
	})

	inlineHandlers := 0
	doc.Find("*").Each(func(_ int, sel *goquery.Selection) {
		for _, attr := range sel.Nodes[0].Attr {
			if strings.HasPrefix(strings.ToLower(attr.Key), "on") {
				inlineHandlers++
			}
		}
	})
	if inlineHandlers > 0 {
		add("inline_event_handler", models.SeverityLow,
			"Inline Event Handlers Present",
			strconv.Itoa(inlineHandlers)+" inline on* handlers found; they widen the XSS surface and block strict CSP.",
			"")
	}

	return findings
}
