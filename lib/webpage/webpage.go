package webpage

import (
	"bytes"
	"context"
	"mime"
	"strings"

	"github.com/tidwall/gjson"
)

// Document is a fetched page before extraction.
type Document struct {
	URL string
	// FinalURL is the url after redirects.
	FinalURL    string
	Status      int
	ContentType string
	Body        []byte
	// JSONPayloads are the bodies of json responses the page loaded while
	// rendering, only filled by the browser fetcher.
	JSONPayloads [][]byte
}

// IsJSON reports whether the document body itself is json. Bodies that are
// not declared as html are sniffed since apis often serve json as text/plain.
func (d Document) IsJSON() bool {
	mediaType, _, err := mime.ParseMediaType(d.ContentType)
	if err != nil {
		mediaType = d.ContentType
	}
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	switch {
	case mediaType == "application/json", mediaType == "text/json", strings.HasSuffix(mediaType, "+json"):
		return true
	case mediaType == "text/html", mediaType == "application/xhtml+xml":
		return false
	}
	return gjson.ValidBytes(bytes.TrimSpace(d.Body))
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (Document, error)
}
