package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"doc-assistant/internal/prompts"
)

func TestBuildInstruction(t *testing.T) {
	keyPoints, _ := prompts.Default().Instruction(prompts.KindKeyPoints)

	got, err := buildInstruction("", "key_points", "")
	if err != nil || got != keyPoints {
		t.Fatalf("expected key points instruction, got %q (%v)", got, err)
	}

	got, err = buildInstruction("", "summary", "Who is the author?")
	if err != nil || got != prompts.QuestionInstruction("Who is the author?") {
		t.Fatalf("expected question instruction, got %q (%v)", got, err)
	}

	if _, err := buildInstruction("", "poem", ""); !errors.Is(err, prompts.ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "prompts.yaml")
	if err := os.WriteFile(path, []byte("study_questions: Ask three questions.\n"), 0o600); err != nil {
		t.Fatalf("write prompts: %v", err)
	}
	got, err = buildInstruction(path, "study_questions", "")
	if err != nil || got != "Ask three questions." {
		t.Fatalf("expected override, got %q (%v)", got, err)
	}
}
