// Package templates holds the server-rendered pages, embedded into the binary.
package templates

import (
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

//go:embed *.tmpl
var files embed.FS

// FuncMap is available to every page
var FuncMap = template.FuncMap{
	"money":   formatMoney,
	"date":    formatDate,
	"billing": formatBilling,
	"title":   titleCase,
}

// Load parses every embedded page and partial
func Load() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(FuncMap).ParseFS(files, "*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return tmpl, nil
}

func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("January 2, 2006")
}

// formatBilling renders a schedule such as "every month" or "every 2 weeks"
func formatBilling(period string, interval int) string {
	if period == "" {
		return ""
	}
	if interval <= 1 {
		return "every " + period
	}
	return fmt.Sprintf("every %d %ss", interval, period)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
