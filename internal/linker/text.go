// File path: internal/linker/text.go
package linker

import (
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Span is a half-open byte range [Start, End) into PlainDoc.Text.
type Span struct {
	Start int
	End   int
}

func (s Span) Len() int {
	return s.End - s.Start
}

func (s Span) overlaps(other Span) bool {
	return s.Start < other.End && other.Start < s.End
}

// Block is one paragraph-level element of the source document.
type Block struct {
	Index int
	Span  Span
}

// PlainDoc is the plain-text rendering of an HTML source with enough span
// bookkeeping to keep offset arithmetic out of the scoring code: block
// boundaries, spans already inside hyperlinks, and the anchors/URLs those
// hyperlinks carry.
type PlainDoc struct {
	Text          string
	lower         string
	Blocks        []Block
	LinkedSpans   []Span
	LinkedAnchors []string
	LinkedURLs    []string
}

var blockSelector = "p, h1, h2, h3, h4, h5, h6, li, blockquote"

// ExtractPlainDoc renders HTML content into a PlainDoc. Content without any
// block elements is treated as a single block of bare text.
func ExtractPlainDoc(content string) (*PlainDoc, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, err
	}
	plain := &PlainDoc{}
	var builder strings.Builder

	appendBlock := func(sel *goquery.Selection) {
		start := builder.Len()
		for _, node := range sel.Nodes {
			collectText(node, &builder, plain, false)
		}
		end := builder.Len()
		if end == start {
			return
		}
		plain.Blocks = append(plain.Blocks, Block{Index: len(plain.Blocks), Span: Span{Start: start, End: end}})
		builder.WriteString("\n\n")
	}

	blocks := doc.Find(blockSelector)
	if blocks.Length() > 0 {
		blocks.Each(func(_ int, sel *goquery.Selection) {
			// Skip nested blocks (a li inside a blockquote) so text is not
			// captured twice.
			if sel.ParentsFiltered(blockSelector).Length() > 0 {
				return
			}
			appendBlock(sel)
		})
	} else {
		appendBlock(doc.Find("body"))
	}

	plain.Text = strings.TrimRight(builder.String(), "\n")
	// ASCII-only lowering keeps byte offsets aligned between Text and lower.
	plain.lower = lowerASCII(plain.Text)

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if strings.TrimSpace(href) != "" {
			plain.LinkedURLs = append(plain.LinkedURLs, href)
		}
		if text := strings.TrimSpace(sel.Text()); text != "" {
			plain.LinkedAnchors = append(plain.LinkedAnchors, text)
		}
	})
	return plain, nil
}

// collectText appends the text content of node, normalizing whitespace runs
// to single spaces and recording spans that sit inside an <a> element.
func collectText(node *html.Node, builder *strings.Builder, plain *PlainDoc, inLink bool) {
	if node.Type == html.ElementNode && node.Data == "a" {
		inLink = true
	}
	if node.Type == html.TextNode {
		start := builder.Len()
		writeCollapsed(builder, node.Data)
		end := builder.Len()
		if inLink && end > start {
			plain.LinkedSpans = append(plain.LinkedSpans, Span{Start: start, End: end})
		}
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, builder, plain, inLink)
	}
}

func writeCollapsed(builder *strings.Builder, text string) {
	current := builder.String()
	lastSpace := len(current) == 0 || current[len(current)-1] == ' ' || current[len(current)-1] == '\n'
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !lastSpace {
				builder.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		builder.WriteRune(r)
		lastSpace = false
	}
}

// BlockAt returns the index of the block containing the offset, or -1.
func (p *PlainDoc) BlockAt(offset int) int {
	for _, block := range p.Blocks {
		if offset >= block.Span.Start && offset < block.Span.End {
			return block.Index
		}
	}
	return -1
}

// InsideLink reports whether any part of the span falls inside an existing
// hyperlink.
func (p *PlainDoc) InsideLink(span Span) bool {
	for _, linked := range p.LinkedSpans {
		if span.overlaps(linked) {
			return true
		}
	}
	return false
}

func lowerASCII(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for i := 0; i < len(text); i++ {
		b := text[i]
		if b >= 'A' && b <= 'Z' {
			b += 'a' - 'A'
		}
		sb.WriteByte(b)
	}
	return sb.String()
}

// FindAll returns every case-insensitive verbatim occurrence of phrase that
// starts on a word boundary and does not intersect an existing hyperlink.
func (p *PlainDoc) FindAll(phrase string) []Span {
	needle := lowerASCII(strings.TrimSpace(phrase))
	if needle == "" {
		return nil
	}
	var spans []Span
	for from := 0; from < len(p.lower); {
		idx := strings.Index(p.lower[from:], needle)
		if idx < 0 {
			break
		}
		start := from + idx
		span := Span{Start: start, End: start + len(needle)}
		from = start + 1
		if !wordBoundary(p.lower, span) {
			continue
		}
		if p.InsideLink(span) {
			continue
		}
		spans = append(spans, span)
	}
	return spans
}

func wordBoundary(text string, span Span) bool {
	if span.Start > 0 && isWordByte(text[span.Start-1]) {
		return false
	}
	if span.End < len(text) && isWordByte(text[span.End]) {
		return false
	}
	return true
}

func isWordByte(b byte) bool {
	return b == '-' || b == '_' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// Context returns up to radius bytes of surrounding text on each side of the
// span, trimmed to rune boundaries.
func (p *PlainDoc) Context(span Span, radius int) string {
	start := span.Start - radius
	if start < 0 {
		start = 0
	}
	end := span.End + radius
	if end > len(p.Text) {
		end = len(p.Text)
	}
	for start > 0 && !utf8Start(p.Text[start]) {
		start--
	}
	for end < len(p.Text) && !utf8Start(p.Text[end]) {
		end++
	}
	return strings.TrimSpace(p.Text[start:end])
}

func utf8Start(b byte) bool {
	return b&0xC0 != 0x80
}

// Sentences splits the document into sentence spans, never crossing block
// boundaries.
func (p *PlainDoc) Sentences() []Span {
	var sentences []Span
	for _, block := range p.Blocks {
		start := block.Span.Start
		for i := block.Span.Start; i < block.Span.End; i++ {
			ch := p.Text[i]
			if ch != '.' && ch != '!' && ch != '?' {
				continue
			}
			end := i + 1
			if span, ok := trimSpan(p.Text, Span{Start: start, End: end}); ok {
				sentences = append(sentences, span)
			}
			start = end
		}
		if span, ok := trimSpan(p.Text, Span{Start: start, End: block.Span.End}); ok {
			sentences = append(sentences, span)
		}
	}
	return sentences
}

// trimSpan shrinks a span to exclude surrounding whitespace and trailing
// sentence punctuation; empty results are dropped.
func trimSpan(text string, span Span) (Span, bool) {
	start, end := span.Start, span.End
	for start < end && isSpaceByte(text[start]) {
		start++
	}
	for end > start && (isSpaceByte(text[end-1]) || text[end-1] == '.' || text[end-1] == '!' || text[end-1] == '?') {
		end--
	}
	if start >= end {
		return Span{}, false
	}
	return Span{Start: start, End: end}, true
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// Token is one lower-cased word with its span in the source text.
type Token struct {
	Text string
	Span Span
}

// Tokenize splits text into lower-cased word tokens with spans.
func Tokenize(text string) []Token {
	var tokens []Token
	start := -1
	for i := 0; i <= len(text); i++ {
		isWord := i < len(text) && isWordByte(text[i])
		if isWord && start < 0 {
			start = i
		}
		if !isWord && start >= 0 {
			tokens = append(tokens, Token{
				Text: strings.ToLower(text[start:i]),
				Span: Span{Start: start, End: i},
			})
			start = -1
		}
	}
	return tokens
}
