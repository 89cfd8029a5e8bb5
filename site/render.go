package site

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/theimaginaryfoundation/browse-o-bot/normalize"
)

// renderPage produces one conversation page from its ordered units.
func renderPage(f TextFormatter, title, date string, units []normalize.RenderUnit) ([]byte, error) {
	msgs := make([]messageData, 0, len(units))
	for _, u := range units {
		body, err := unitBody(f, u)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, messageData{
			RoleLabel: u.Role,
			Audience:  audienceClass(u.Audience),
			Body:      body,
		})
	}

	var buf bytes.Buffer
	err := pageTmpl.Execute(&buf, pageData{
		Title:    title,
		Date:     date,
		CSS:      template.CSS(baseCSS),
		Script:   template.JS(collapseJS),
		Messages: msgs,
	})
	if err != nil {
		return nil, fmt.Errorf("renderPage: %w", err)
	}
	return buf.Bytes(), nil
}

func renderIndex(siteTitle string, cards []cardData) ([]byte, error) {
	var buf bytes.Buffer
	err := indexTmpl.Execute(&buf, indexData{
		SiteTitle: siteTitle,
		CSS:       template.CSS(baseCSS),
		Cards:     cards,
	})
	if err != nil {
		return nil, fmt.Errorf("renderIndex: %w", err)
	}
	return buf.Bytes(), nil
}

// unitBody renders one unit's payload to markup. Conversation text goes
// through the text formatter; code is preformatted verbatim; images and file
// links point at staged basenames; thought, profile, and generic units render
// as muted asides.
func unitBody(f TextFormatter, u normalize.RenderUnit) (template.HTML, error) {
	switch u.Kind {
	case normalize.KindConversationText:
		html, err := f.FormatHTML(u.Payload)
		if err != nil {
			return "", err
		}
		return template.HTML(html), nil
	case normalize.KindCode:
		return template.HTML("<pre><code>" + template.HTMLEscapeString(u.Payload) + "</code></pre>"), nil
	case normalize.KindImage:
		return template.HTML(`<img src="` + template.HTMLEscapeString(u.Payload) + `">`), nil
	case normalize.KindTextFile:
		name := template.HTMLEscapeString(u.Payload)
		return template.HTML(`<a href="` + name + `" target="_blank">` + name + `</a>`), nil
	case normalize.KindThought:
		return asideBody("thought:" + u.Payload), nil
	case normalize.KindUserProfile:
		return asideBody("user_profile:" + u.Payload), nil
	case normalize.KindGeneric:
		return asideBody(u.Payload), nil
	}
	return "", fmt.Errorf("unitBody: unknown unit kind %q", u.Kind)
}

func asideBody(text string) template.HTML {
	return template.HTML(`<div class="aside">` + template.HTMLEscapeString(text) + `</div>`)
}

// audienceClass reduces a raw recipient to the form used for both the CSS
// accent class and the badge text: lowercased, dots to dashes.
func audienceClass(audience string) string {
	s := strings.ToLower(strings.TrimSpace(audience))
	return strings.ReplaceAll(s, ".", "-")
}
