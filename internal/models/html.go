// FILENAME: internal/models/html.go
package models

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Page is what the tokenizer pulls out of an HTML body.
type Page struct {
	Title        string
	FirstHeading string
	Links        int
}

// ParsePage scans body once with the html tokenizer. Non-HTML input yields
// an empty Page rather than an error.
func ParsePage(body []byte) Page {
	var p Page
	z := html.NewTokenizer(bytes.NewReader(body))
	var inTitle, inHeading, titleDone, headingDone bool

	for {
		switch z.Next() {
		case html.ErrorToken:
			p.Title = strings.TrimSpace(p.Title)
			p.FirstHeading = strings.TrimSpace(p.FirstHeading)
			return p
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			switch atom.Lookup(name) {
			case atom.Title:
				inTitle = !titleDone
			case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
				inHeading = !headingDone
			case atom.A:
				for hasAttr {
					var key []byte
					key, _, hasAttr = z.TagAttr()
					if string(key) == "href" {
						p.Links++
						break
					}
				}
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch atom.Lookup(name) {
			case atom.Title:
				if inTitle {
					titleDone = true
				}
				inTitle = false
			case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
				if inHeading {
					headingDone = true
				}
				inHeading = false
			}
		case html.TextToken:
			if inTitle {
				p.Title += string(z.Text())
			}
			if inHeading {
				p.FirstHeading += string(z.Text())
			}
		}
	}
}

// ExtractTitle returns the trimmed <title> text, or "".
func ExtractTitle(body []byte) string {
	return ParsePage(body).Title
}
