// File path: internal/linker/text_test.go
package linker

import (
	"strings"
	"testing"
)

func TestExtractPlainDocBlocks(t *testing.T) {
	content := `<p>First paragraph of the document.</p>` +
		`<p>Second paragraph with details.</p>` +
		`<ul><li>Item one text</li><li>Item two text</li></ul>`
	doc, err := ExtractPlainDoc(content)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(doc.Blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(doc.Blocks))
	}
	if !strings.Contains(doc.Text, "First paragraph") {
		t.Fatalf("text missing first paragraph: %q", doc.Text)
	}
	first := doc.Blocks[0].Span
	if got := doc.Text[first.Start:first.End]; got != "First paragraph of the document." {
		t.Fatalf("unexpected first block text: %q", got)
	}
	if idx := doc.BlockAt(first.Start); idx != 0 {
		t.Fatalf("BlockAt(first) = %d", idx)
	}
	last := doc.Blocks[3].Span
	if idx := doc.BlockAt(last.Start); idx != 3 {
		t.Fatalf("BlockAt(last) = %d", idx)
	}
}

func TestExtractPlainDocBareText(t *testing.T) {
	doc, err := ExtractPlainDoc("just bare text with no markup at all")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(doc.Blocks) != 1 {
		t.Fatalf("expected single block, got %d", len(doc.Blocks))
	}
	if doc.Text != "just bare text with no markup at all" {
		t.Fatalf("unexpected text: %q", doc.Text)
	}
}

func TestExtractPlainDocTracksLinks(t *testing.T) {
	content := `<p>See <a href="https://example.com/x">existing link</a> for details.</p>`
	doc, err := ExtractPlainDoc(content)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(doc.LinkedURLs) != 1 || doc.LinkedURLs[0] != "https://example.com/x" {
		t.Fatalf("unexpected linked urls: %v", doc.LinkedURLs)
	}
	if len(doc.LinkedAnchors) != 1 || doc.LinkedAnchors[0] != "existing link" {
		t.Fatalf("unexpected linked anchors: %v", doc.LinkedAnchors)
	}
	if spans := doc.FindAll("existing link"); len(spans) != 0 {
		t.Fatalf("linked text should be excluded from matches, got %v", spans)
	}
	if spans := doc.FindAll("details"); len(spans) != 1 {
		t.Fatalf("expected one match for unlinked text, got %v", spans)
	}
}

func TestFindAllWordBoundaries(t *testing.T) {
	doc, err := ExtractPlainDoc(`<p>Our rental properties need renters, not a rent strike.</p>`)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if spans := doc.FindAll("rent"); len(spans) != 1 {
		t.Fatalf("expected rent to match only the standalone word, got %d", len(spans))
	}
	if spans := doc.FindAll("rental"); len(spans) != 1 {
		t.Fatalf("expected one rental match, got %d", len(spans))
	}
	if spans := doc.FindAll("RENTAL PROPERTIES"); len(spans) != 1 {
		t.Fatal("matching should be case-insensitive")
	}
}

func TestSentences(t *testing.T) {
	doc, err := ExtractPlainDoc(`<p>First sentence here. Second one follows! Third?</p><p>Lone block sentence</p>`)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	sentences := doc.Sentences()
	if len(sentences) != 4 {
		t.Fatalf("expected 4 sentences, got %d", len(sentences))
	}
	if got := doc.Text[sentences[0].Start:sentences[0].End]; got != "First sentence here" {
		t.Fatalf("unexpected first sentence: %q", got)
	}
	if got := doc.Text[sentences[3].Start:sentences[3].End]; got != "Lone block sentence" {
		t.Fatalf("unexpected last sentence: %q", got)
	}
}

func TestTokenize(t *testing.T) {
	tokens := Tokenize("Cash-Flow Analysis 101")
	if len(tokens) != 3 {
		t.Fatalf("expected 3 tokens, got %d: %v", len(tokens), tokens)
	}
	if tokens[0].Text != "cash-flow" {
		t.Fatalf("hyphenated token split: %q", tokens[0].Text)
	}
	if tokens[2].Text != "101" {
		t.Fatalf("numeric token lost: %q", tokens[2].Text)
	}
}

func TestContextRespectsBounds(t *testing.T) {
	doc, err := ExtractPlainDoc(`<p>alpha beta gamma delta epsilon</p>`)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	spans := doc.FindAll("gamma")
	if len(spans) != 1 {
		t.Fatalf("expected gamma match, got %v", spans)
	}
	context := doc.Context(spans[0], 6)
	if !strings.Contains(context, "gamma") {
		t.Fatalf("context lost the span: %q", context)
	}
	if len(context) > len(doc.Text) {
		t.Fatal("context exceeded document")
	}
}
