package webpage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"ratewatch-backend/lib/htmlutil"
	"ratewatch-backend/lib/numbers"
	"ratewatch-backend/lib/textutil"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var ErrHeadingNotFound = errors.New("heading not found")

// HeadingThreshold is the minimum similarity between the requested heading
// and a heading of the page.
const HeadingThreshold = 0.85

type ExtractOptions struct {
	// Heading selects the section under the heading most similar to it.
	Heading string
	Numbers bool
	Links   bool
}

type Section struct {
	Heading string   `json:"heading"`
	Level   int      `json:"level"`
	Blocks  []string `json:"blocks"`
}

type Page struct {
	URL        string            `json:"url"`
	Title      string            `json:"title"`
	Paragraphs []string          `json:"paragraphs"`
	Section    *Section          `json:"section,omitempty"`
	Numbers    []numbers.Token   `json:"numbers,omitempty"`
	Links      []htmlutil.Anchor `json:"links,omitempty"`
}

// Extract reads the title, paragraphs and optionally a section, numeric
// tokens and links out of a fetched document. Numbers come from the section
// when one was requested, from the whole visible text otherwise, plus every
// json payload.
func Extract(ctx context.Context, doc Document, opts ExtractOptions) (Page, error) {
	page := Page{URL: doc.FinalURL}
	if page.URL == "" {
		page.URL = doc.URL
	}

	if doc.IsJSON() {
		if opts.Heading != "" {
			return Page{}, fmt.Errorf("%w: %q, document is json", ErrHeadingNotFound, opts.Heading)
		}
		if opts.Numbers {
			tokens, err := numbers.FromJSON(doc.Body)
			if err != nil {
				return Page{}, err
			}
			page.Numbers = tokens
		}
		return page, nil
	}

	root, err := goquery.NewDocumentFromReader(bytes.NewReader(doc.Body))
	if err != nil {
		return Page{}, fmt.Errorf("parse html: %w", err)
	}

	page.Title = Title(root)
	page.Paragraphs = Paragraphs(root)

	text := ""
	if opts.Heading != "" {
		section, err := FindSection(root, opts.Heading)
		if err != nil {
			return Page{}, err
		}
		page.Section = &section
		text = strings.Join(section.Blocks, "\n")
	} else if body := root.Find("body"); body.Length() > 0 {
		text = htmlutil.CleanText(htmlutil.GetText(body.Nodes[0]))
	}

	if opts.Numbers {
		page.Numbers = numbers.FromText(text)
		for i, payload := range doc.JSONPayloads {
			tokens, err := numbers.FromJSON(payload)
			if err != nil {
				continue
			}
			for _, tok := range tokens {
				tok.Path = fmt.Sprintf("payload%d.%s", i, tok.Path)
				page.Numbers = append(page.Numbers, tok)
			}
		}
	}

	if opts.Links {
		base, _ := url.Parse(page.URL)
		page.Links = htmlutil.GetAnchors(ctx, base, root.Find("a[href]"))
	}

	return page, nil
}

// Title is the document title, falling back to the first h1.
func Title(root *goquery.Document) string {
	title := htmlutil.SelectionText(root.Find("title").First())
	if title != "" {
		return title
	}
	return htmlutil.SelectionText(root.Find("h1").First())
}

func Paragraphs(root *goquery.Document) []string {
	paragraphs := []string{}
	root.Find("p").Each(func(_ int, sel *goquery.Selection) {
		text := htmlutil.SelectionText(sel)
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	return paragraphs
}

const headingSelector = "h1, h2, h3, h4, h5, h6"

// FindSection locates the heading most similar to query and collects the
// blocks that follow it until the next heading of the same or a higher
// level.
func FindSection(root *goquery.Document, query string) (Section, error) {
	headings := root.Find(headingSelector)
	texts := make([]string, headings.Length())
	headings.Each(func(i int, sel *goquery.Selection) {
		texts[i] = htmlutil.SelectionText(sel)
	})

	idx := textutil.BestMatch(query, texts, HeadingThreshold)
	if idx < 0 {
		return Section{}, fmt.Errorf("%w: %q", ErrHeadingNotFound, query)
	}

	node := headings.Nodes[idx]
	level := htmlutil.HeadingLevel(node)
	return Section{
		Heading: texts[idx],
		Level:   level,
		Blocks:  sectionBlocks(node, level),
	}, nil
}

func sectionBlocks(heading *html.Node, level int) []string {
	blocks := []string{}
	// headings wrapped in their own container have no siblings, climb until
	// there is content to read
	for cur := heading; cur != nil && cur.DataAtom != atom.Body; cur = cur.Parent {
		for sib := cur.NextSibling; sib != nil; sib = sib.NextSibling {
			if endsSection(sib, level) {
				return blocks
			}
			text := htmlutil.CleanText(htmlutil.GetText(sib))
			if text != "" {
				blocks = append(blocks, text)
			}
		}
		if len(blocks) > 0 {
			return blocks
		}
	}
	return blocks
}

func endsSection(n *html.Node, level int) bool {
	if l := htmlutil.HeadingLevel(n); l > 0 && l <= level {
		return true
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if endsSection(child, level) {
			return true
		}
	}
	return false
}
