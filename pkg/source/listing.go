package source

import (
	"io"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
)

func isPlanFile(name string) bool {
	return strings.HasSuffix(name, ".json") && name != ".json"
}

// parseListing extracts the file names of every anchor pointing at a .json
// document in an HTML directory listing.
func parseListing(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var names []string
	for n := range doc.Descendants() {
		if n.Type != html.ElementNode || n.Data != "a" {
			continue
		}
		for _, attr := range n.Attr {
			if attr.Key != "href" {
				continue
			}
			if name, ok := hrefFilename(attr.Val); ok {
				names = append(names, name)
			}
		}
	}
	return names, nil
}

func hrefFilename(href string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", false
	}
	name := path.Base(u.Path)
	if !isPlanFile(name) {
		return "", false
	}
	return name, true
}
