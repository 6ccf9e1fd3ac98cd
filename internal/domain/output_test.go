package domain

import (
	"strings"
	"testing"
)

func TestMetadataEnvelope(t *testing.T) {
	t.Parallel()

	raw, err := EncodeMetadata(&SiteMetadata{Slug: "fall-recipes", CategoryIDs: []int64{3}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(raw), `"kind":"site"`) {
		t.Fatalf("missing kind tag: %s", raw)
	}

	decoded, err := DecodeMetadata(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	site, ok := decoded.(*SiteMetadata)
	if !ok {
		t.Fatalf("expected site metadata, got %T", decoded)
	}
	if site.Slug != "fall-recipes" || len(site.CategoryIDs) != 1 {
		t.Fatalf("unexpected site metadata %+v", site)
	}

	if _, err := DecodeMetadata([]byte(`{"kind":"video"}`)); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestSettingsBoardFor(t *testing.T) {
	t.Parallel()

	s := Settings{BoardMappings: map[string]string{"7": "board-7", DefaultBoardKey: "board-default"}}
	if got := s.BoardFor([]int64{7, 9}); got != "board-7" {
		t.Fatalf("expected mapped board, got %s", got)
	}
	if got := s.BoardFor([]int64{9}); got != "board-default" {
		t.Fatalf("expected default board, got %s", got)
	}
	if got := (Settings{}).BoardFor(nil); got != "" {
		t.Fatalf("expected no board, got %s", got)
	}
}

func TestNormalizeTargets(t *testing.T) {
	t.Parallel()

	got := NormalizeTargets([]string{" Site", "x", "site", "", "reddit"})
	want := []string{"site", "x", "reddit"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
