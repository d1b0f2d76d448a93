package mail

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/gopalvishwakrma/dojialert/internal/domain/model"
)

var (
	mdRenderer    goldmark.Markdown
	htmlSanitizer *bluemonday.Policy
)

func init() {
	mdRenderer = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)

	htmlSanitizer = bluemonday.UGCPolicy()
}

// Subject returns the mail subject line for an alert.
func Subject(alert model.Alert) string {
	return fmt.Sprintf("Intraday Doji Alert (%s)", alert.Window)
}

// RenderHTML renders the alert as an HTML document: an optional operator note
// followed by a table of matching symbols.
func RenderHTML(ctx context.Context, alert model.Alert) (string, error) {
	var buf bytes.Buffer
	if err := alertPage(alert).Render(ctx, &buf); err != nil {
		return "", fmt.Errorf("render alert html: %w", err)
	}
	return buf.String(), nil
}

// RenderText renders the plain-text alternative of the alert.
func RenderText(alert model.Alert) string {
	var b strings.Builder
	if alert.Note != "" {
		b.WriteString(alert.Note)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "The following stocks formed a Doji/Gravestone Doji with <%s%% range:\n\n", formatPct(alert.MaxRangePct))
	for _, m := range alert.Matches {
		fmt.Fprintf(&b, "%-12s %-16s %.2f\n", m.Symbol, m.Pattern, m.Candle.RangePercent())
	}
	return b.String()
}

// RenderMarkdown converts a markdown string to sanitized HTML.
// Returns empty string for empty input.
func RenderMarkdown(src string) string {
	if src == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(src), &buf); err != nil {
		return htmlSanitizer.Sanitize(src)
	}

	return htmlSanitizer.Sanitize(buf.String())
}

func alertPage(alert model.Alert) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<html><body>\n"); err != nil {
			return err
		}
		if note := RenderMarkdown(alert.Note); note != "" {
			if err := templ.Raw(note).Render(ctx, w); err != nil {
				return err
			}
		}
		intro := fmt.Sprintf("<p>The following stocks formed a Doji/Gravestone Doji with &lt;%s%% range:</p>\n",
			templ.EscapeString(formatPct(alert.MaxRangePct)))
		if _, err := io.WriteString(w, intro); err != nil {
			return err
		}
		if err := matchTable(alert.Matches).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</body></html>")
		return err
	})
}

func matchTable(matches []model.Match) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString("<table border='1' cellpadding='5' cellspacing='0'>\n")
		b.WriteString("<tr><th>Symbol</th><th>Type</th><th>Range (%)</th></tr>\n")
		for _, m := range matches {
			fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%.2f</td></tr>\n",
				templ.EscapeString(m.Symbol),
				templ.EscapeString(string(m.Pattern)),
				m.Candle.RangePercent(),
			)
		}
		b.WriteString("</table>\n")
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// formatPct renders a threshold without trailing zeros: 1 -> "1", 2.5 -> "2.5".
func formatPct(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
