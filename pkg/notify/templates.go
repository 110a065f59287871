package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Render renders the HTML body for n.
func Render(n Notification) (string, error) {
	name := n.TemplateKey + ".html"
	if templates.Lookup(name) == nil {
		return "", fmt.Errorf("no template for %q", n.TemplateKey)
	}
	var buf bytes.Buffer
	err := templates.ExecuteTemplate(&buf, name, map[string]any{
		"Name":          n.Recipient.Name,
		"Amount":        n.Amount.String(),
		"Balance":       n.Balance.String(),
		"AccountNumber": maskNumber(n.AccountNumber),
	})
	if err != nil {
		return "", fmt.Errorf("render %s: %w", n.TemplateKey, err)
	}
	return buf.String(), nil
}

func maskNumber(number string) string {
	if len(number) <= 4 {
		return number
	}
	return strings.Repeat("*", len(number)-4) + number[len(number)-4:]
}
