package email

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/bakkerme/uwuzu-watch/internal/uwuzu"
)

// Digest renders a batch of posts into a single HTML email body. Post
// text is treated as markdown; raw HTML inside it stays escaped.
type Digest struct {
	converter goldmark.Markdown
}

func NewDigest() *Digest {
	return &Digest{
		converter: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
	}
}

// Build assembles the digest message. The caller fills in From/To.
func (d *Digest) Build(subject string, posts []uwuzu.Post) (Message, error) {
	var body strings.Builder
	body.WriteString("<h1>" + html.EscapeString(subject) + "</h1>\n")
	for _, post := range posts {
		author := post.Account.Username
		if author == "" {
			author = post.Account.ID
		}
		rendered, err := d.render(post.Text)
		if err != nil {
			return Message{}, fmt.Errorf("render post %s: %w", post.ID, err)
		}
		body.WriteString("<div class=\"post\">\n")
		body.WriteString("<h3>" + html.EscapeString(author) + "</h3>\n")
		body.WriteString(rendered)
		body.WriteString("</div>\n<hr/>\n")
	}
	return Message{Subject: subject, Body: body.String()}, nil
}

func (d *Digest) render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := d.converter.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
