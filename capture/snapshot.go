package capture

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/tera/terastream/types"
)

// Source is anything that can render the current page markup.
type Source interface {
	HTML(ctx context.Context) (string, error)
}

// Snapshot returns the fallback corpus: the rendered markup, followed by the
// interesting inline scripts when jsToken or sign was not captured.
func Snapshot(ctx context.Context, src Source, acc *Accumulator) (string, error) {
	html, err := src.HTML(ctx)
	if err != nil {
		return "", fmt.Errorf("reading page content: %w", err)
	}
	if acc.Has(types.ParamJSToken) && acc.Has(types.ParamSign) {
		return html, nil
	}
	return html + strings.Join(ScriptTexts(html), "\n"), nil
}

// ScriptTexts returns the text of every script element mentioning uk or jsToken.
func ScriptTexts(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	var texts []string
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		if strings.Contains(text, types.ParamUK) || strings.Contains(text, types.ParamJSToken) {
			texts = append(texts, text)
		}
	})
	return texts
}
