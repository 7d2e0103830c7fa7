// File path: internal/linker/inserter.go
package linker

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// linkIDAttr marks anchors this service inserted so they can be removed later
// without touching hand-authored links.
const linkIDAttr = "data-linkwise-id"

// InsertLinks rewrites the document with one anchor element per placeable
// suggestion. Placement re-verifies every structural rule against the live
// tree rather than trusting offsets from the discovery pass: the anchor text
// must still exist outside an existing link, the enclosing block must not
// already hold an inserted link, and the document-wide cap applies. A
// suggestion that cannot be placed is returned with Inserted false; it is
// still a valid recommendation for manual use.
func InsertLinks(content string, suggestions []Suggestion) (string, []Suggestion, error) {
	if len(suggestions) == 0 {
		return content, suggestions, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return content, suggestions, fmt.Errorf("parse content: %w", err)
	}

	usedAnchors := make(map[string]struct{})
	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text != "" {
			usedAnchors[strings.ToLower(text)] = struct{}{}
		}
	})

	blocks := topLevelBlocks(doc)
	blockUsed := make(map[*html.Node]bool)

	inserted := 0
	out := make([]Suggestion, len(suggestions))
	copy(out, suggestions)
	for idx := range out {
		out[idx].Inserted = false
		if inserted >= MaxInsertedLinks {
			continue
		}
		anchor := strings.TrimSpace(out[idx].AnchorText)
		if anchor == "" || out[idx].URL == "" {
			continue
		}
		if _, dup := usedAnchors[strings.ToLower(anchor)]; dup {
			continue
		}
		linkID := uuid.NewString()
		if placeAnchor(blocks, blockUsed, anchor, out[idx].URL, linkID) {
			out[idx].Inserted = true
			out[idx].LinkID = linkID
			usedAnchors[strings.ToLower(anchor)] = struct{}{}
			inserted++
		}
	}

	if inserted == 0 {
		return content, out, nil
	}
	rendered, err := renderContent(doc, content)
	if err != nil {
		return content, out, fmt.Errorf("render content: %w", err)
	}
	return rendered, out, nil
}

// RemoveLink unwraps the inserted anchor with the given id, keeping its text
// in place. The second return reports whether the id was found.
func RemoveLink(content, linkID string) (string, bool, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return content, false, fmt.Errorf("parse content: %w", err)
	}
	selector := fmt.Sprintf("a[%s=%q]", linkIDAttr, linkID)
	sel := doc.Find(selector)
	if sel.Length() == 0 {
		return content, false, nil
	}
	sel.Each(func(_ int, link *goquery.Selection) {
		node := link.Get(0)
		parent := node.Parent
		if parent == nil {
			return
		}
		for node.FirstChild != nil {
			child := node.FirstChild
			node.RemoveChild(child)
			parent.InsertBefore(child, node)
		}
		parent.RemoveChild(node)
	})
	rendered, err := renderContent(doc, content)
	if err != nil {
		return content, false, fmt.Errorf("render content: %w", err)
	}
	return rendered, true, nil
}

// topLevelBlocks returns block elements in document order, skipping blocks
// nested inside other blocks so the per-block rule matches the text
// extraction pass. A document with no block markup degrades to the body as a
// single block.
func topLevelBlocks(doc *goquery.Document) []*html.Node {
	var blocks []*html.Node
	doc.Find(blockSelector).Each(func(_ int, sel *goquery.Selection) {
		if sel.ParentsFiltered(blockSelector).Length() > 0 {
			return
		}
		blocks = append(blocks, sel.Get(0))
	})
	if len(blocks) == 0 {
		if body := doc.Find("body").First(); body.Length() > 0 {
			blocks = append(blocks, body.Get(0))
		}
	}
	return blocks
}

// placeAnchor wraps the first valid occurrence of anchor inside an unused
// block. Matching is case-insensitive and tolerates collapsed whitespace but
// never crosses a text-node boundary or enters an existing link.
func placeAnchor(blocks []*html.Node, blockUsed map[*html.Node]bool, anchor, url, linkID string) bool {
	for _, block := range blocks {
		if blockUsed[block] {
			continue
		}
		if node, start, end := findTextNode(block, anchor); node != nil {
			wrapTextRange(node, start, end, url, linkID)
			blockUsed[block] = true
			return true
		}
	}
	return false
}

// findTextNode walks the block's text nodes in order and returns the first
// node holding a word-bounded occurrence of anchor outside any <a>.
func findTextNode(root *html.Node, anchor string) (*html.Node, int, int) {
	var found *html.Node
	var start, end int
	var walk func(node *html.Node, inLink bool)
	walk = func(node *html.Node, inLink bool) {
		if found != nil {
			return
		}
		if node.Type == html.ElementNode && node.DataAtom == atom.A {
			inLink = true
		}
		if node.Type == html.TextNode && !inLink {
			if s, e, ok := matchFold(node.Data, anchor); ok {
				found, start, end = node, s, e
				return
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child, inLink)
		}
	}
	walk(root, false)
	return found, start, end
}

// matchFold finds anchor inside text, ASCII case-insensitively, treating any
// whitespace run in text as equivalent to a single space in anchor. The match
// must sit on word boundaries so "rent" never matches inside "rental".
func matchFold(text, anchor string) (int, int, bool) {
	if anchor == "" {
		return 0, 0, false
	}
	for i := 0; i < len(text); i++ {
		end, ok := matchFoldAt(text, anchor, i)
		if !ok {
			continue
		}
		if i > 0 && isWordByte(text[i-1]) {
			continue
		}
		if end < len(text) && isWordByte(text[end]) {
			continue
		}
		return i, end, true
	}
	return 0, 0, false
}

func matchFoldAt(text, anchor string, offset int) (int, bool) {
	ti := offset
	for ai := 0; ai < len(anchor); ai++ {
		if anchor[ai] == ' ' {
			if ti >= len(text) || !isSpaceByte(text[ti]) {
				return 0, false
			}
			for ti < len(text) && isSpaceByte(text[ti]) {
				ti++
			}
			continue
		}
		if ti >= len(text) || foldByte(text[ti]) != foldByte(anchor[ai]) {
			return 0, false
		}
		ti++
	}
	return ti, true
}

func foldByte(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

// wrapTextRange splits the text node around [start,end) and wraps the middle
// in a new anchor element carrying the tracking attribute.
func wrapTextRange(node *html.Node, start, end int, url, linkID string) {
	parent := node.Parent
	if parent == nil {
		return
	}
	before := node.Data[:start]
	matched := node.Data[start:end]
	after := node.Data[end:]

	link := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.A,
		Data:     "a",
		Attr: []html.Attribute{
			{Key: "href", Val: url},
			{Key: linkIDAttr, Val: linkID},
		},
	}
	link.AppendChild(&html.Node{Type: html.TextNode, Data: matched})

	if before != "" {
		parent.InsertBefore(&html.Node{Type: html.TextNode, Data: before}, node)
	}
	parent.InsertBefore(link, node)
	if after != "" {
		parent.InsertBefore(&html.Node{Type: html.TextNode, Data: after}, node)
	}
	parent.RemoveChild(node)
}

// renderContent serializes the document back to markup. Fragment input stays
// a fragment: unless the original carried an <html> element, only the body's
// children are rendered so the parser's implicit wrappers do not leak into
// the stored content.
func renderContent(doc *goquery.Document, original string) (string, error) {
	if strings.Contains(strings.ToLower(original), "<html") {
		return doc.Html()
	}
	body := doc.Find("body").First()
	if body.Length() == 0 {
		return doc.Html()
	}
	var builder strings.Builder
	for child := body.Get(0).FirstChild; child != nil; child = child.NextSibling {
		if err := html.Render(&builder, child); err != nil {
			return "", err
		}
	}
	return builder.String(), nil
}
