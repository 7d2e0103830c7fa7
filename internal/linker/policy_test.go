// File path: internal/linker/policy_test.go
package linker

import (
	"testing"

	"github.com/linkwise/linkwise/internal/catalog"
)

func policyCandidate(id, url, contentType string) Candidate {
	return Candidate{Entry: catalog.Entry{ID: id, Title: id, URL: url, ContentType: contentType}}
}

func TestAllowedTargetPolicy(t *testing.T) {
	if !allowedTarget(catalog.TypePage, catalog.TypePage) {
		t.Fatal("summary pages must be allowed to link to other summary pages")
	}
	if allowedTarget(catalog.TypePage, catalog.TypePost) {
		t.Fatal("summary pages must not link to articles")
	}
	if !allowedTarget(catalog.TypePost, catalog.TypePage) {
		t.Fatal("articles must be allowed to link to summary pages")
	}
	if !allowedTarget(catalog.TypePost, catalog.TypePost) {
		t.Fatal("articles must be allowed to link to other articles")
	}
}

func TestFilterCandidatesDropsAlreadyLinked(t *testing.T) {
	already := newLinkedTargets([]string{"https://example.com/brrrr/"})
	req := Request{SourceID: "src", ContentType: catalog.TypePost}
	kept := filterCandidates(req, already, []Candidate{
		// Different scheme and no trailing slash still count as the same URL.
		policyCandidate("brrrr", "http://example.com/brrrr", catalog.TypePost),
		policyCandidate("dallas", "https://example.com/dallas", catalog.TypePost),
	})
	if len(kept) != 1 || kept[0].Entry.ID != "dallas" {
		t.Fatalf("already-linked target survived the filter: %+v", kept)
	}
}

func TestFilterCandidatesDropsSelfAndExcluded(t *testing.T) {
	req := Request{
		SourceID:    "src",
		ContentType: catalog.TypePost,
		ExcludeIDs:  []string{"banned", " padded "},
	}
	kept := filterCandidates(req, nil, []Candidate{
		policyCandidate("src", "https://example.com/src", catalog.TypePost),
		policyCandidate("banned", "https://example.com/banned", catalog.TypePost),
		policyCandidate("padded", "https://example.com/padded", catalog.TypePost),
		policyCandidate("", "https://example.com/empty", catalog.TypePost),
		policyCandidate("keep", "https://example.com/keep", catalog.TypePost),
	})
	if len(kept) != 1 || kept[0].Entry.ID != "keep" {
		t.Fatalf("self/excluded filtering wrong: %+v", kept)
	}
}

func TestFilterCandidatesEnforcesPagePolicy(t *testing.T) {
	req := Request{SourceID: "hub", ContentType: catalog.TypePage}
	kept := filterCandidates(req, nil, []Candidate{
		policyCandidate("landing", "https://example.com/landing", catalog.TypePage),
		policyCandidate("article", "https://example.com/article", catalog.TypePost),
	})
	if len(kept) != 1 || kept[0].Entry.ID != "landing" {
		t.Fatalf("page source must only keep page targets: %+v", kept)
	}
}
