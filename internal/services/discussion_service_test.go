package services

import (
	"context"
	"errors"
	"testing"
)

func TestAppendDiscussions(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	p := createDraft(t, s, "Talkative")

	links := []string{
		"https://discuss.example.org/t/1",
		"https://lists.example.org/archives/42",
		"https://discuss.example.org/t/1",
	}
	for i, link := range links {
		d, err := s.discussions.Append(ctx, p.Handle, link, "alice")
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if d.Seq != i+1 {
			t.Errorf("expected seq %d, got %d", i+1, d.Seq)
		}
	}

	discussions, err := s.discussions.List(ctx, p.Handle)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(discussions) != len(links) {
		t.Fatalf("expected %d discussions, duplicates included, got %d", len(links), len(discussions))
	}
	for i, d := range discussions {
		if d.Link != links[i] {
			t.Errorf("discussion %d: expected %q, got %q", i, links[i], d.Link)
		}
	}

	loaded, err := s.proposals.Get(ctx, p.Handle)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(loaded.Discussions) != len(links) {
		t.Errorf("expected discussions on the proposal, got %d", len(loaded.Discussions))
	}
}

func TestAppendDiscussionValidation(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	p := createDraft(t, s, "Quiet")

	if _, err := s.discussions.Append(ctx, p.Handle, "   ", "alice"); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	if _, err := s.discussions.Append(ctx, "SymPEP-0077", "https://x.example.org", "alice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.discussions.List(ctx, "SymPEP-0077"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
