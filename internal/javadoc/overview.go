package javadoc

import (
	"bytes"
	"html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
)

// RenderOverview converts a markdown overview into the HTML page the
// generator expects for -overview. Only the body is used by the tool.
func RenderOverview(markdown []byte, title string) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var body bytes.Buffer
	if err := md.Convert(markdown, &body); err != nil {
		return nil, errors.WrapError(err, errors.CategoryDocs, "render overview").Build()
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<title>")
	page.WriteString(html.EscapeString(title))
	page.WriteString("</title>\n</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}
