package slo

import (
	"fmt"
	"strings"
	"text/template"
)

// WindowPlaceholder is the substitution point indicator queries must carry.
const WindowPlaceholder = "{{.window}}"

const placeholderProbe = "__slider_window__"

// RenderQuery substitutes window into a query template.
func RenderQuery(query, window string) (string, error) {
	tpl, err := template.New("query").Option("missingkey=error").Parse(query)
	if err != nil {
		return "", fmt.Errorf("parse query template: %w", err)
	}
	var b strings.Builder
	if err := tpl.Execute(&b, map[string]string{"window": window}); err != nil {
		return "", fmt.Errorf("render query template: %w", err)
	}
	return b.String(), nil
}

// HasWindowPlaceholder reports whether rendering query actually substitutes the window.
func HasWindowPlaceholder(query string) bool {
	rendered, err := RenderQuery(query, placeholderProbe)
	if err != nil {
		return false
	}
	return strings.Contains(rendered, placeholderProbe)
}
