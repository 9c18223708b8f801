package heuristic

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sentinelnexus/guard/internal/models"
)

func TestWebScanHTML(t *testing.T) {
	html := `<html><body>
<form action="http://shop.test/login" method="post">
  <input type="text" name="user">
  <input type="password" name="pass">
</form>
<script src="http://cdn.test/app.js"></script>
<div onclick="track()">buy now</div>
</body></html>`

	result := Scan(html, models.ModeWeb)

	types := map[string]models.Severity{}
	for _, f := range result.Findings {
		assert.Equal(t, models.DomainWebSecurity, f.Domain)
		types[f.FindingType] = f.Severity
	}

	assert.Equal(t, models.SeverityCritical, types["plaintext_credential_post"])
	assert.Equal(t, models.SeverityMedium, types["missing_csrf_token"])
	assert.Equal(t, models.SeverityMedium, types["mixed_content_script"])
	assert.Equal(t, models.SeverityLow, types["inline_event_handler"])
	assert.Equal(t, 4, result.TotalFindings)
}

func TestWebScanCSRFTokenPresent(t *testing.T) {
	html := `<form action="/login" method="post">
  <input type="hidden" name="csrf_token" value="x">
  <input type="password" name="pass">
</form>`

	result := Scan(html, models.ModeWeb)

	for _, f := range result.Findings {
		assert.NotEqual(t, "missing_csrf_token", f.FindingType)
		assert.NotEqual(t, "plaintext_credential_post", f.FindingType, "relative action is not plaintext http")
	}
}

func TestWebScanBareURL(t *testing.T) {
	// голый URL без разметки локально проверить нечем
	result := Scan("https://test-vulnerable-site.com", models.ModeWeb)

	assert.Zero(t, result.TotalFindings)
	assert.Equal(t, models.RiskLow, result.RiskLevel)
}
