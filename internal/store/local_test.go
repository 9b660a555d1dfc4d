package store

import (
	"errors"
	"testing"

	"github.com/cybercaution/cybercaution/internal/session"
)

func TestFSStore_RoundTrip(t *testing.T) {
	fs, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	in := session.Session{
		SessionID:      "fs-1",
		AssessmentType: "ransomware-readiness",
		Org:            session.OrgMeta{Name: "Acme", Industry: "Manufacturing"},
		Answers:        map[string]int{"rw-backup-offline": 3, "rw-access-mfa": 1},
		CategoryScores: map[string]int{"backup": 50},
		OverallScore:   33,
		RiskTier:       "High Risk",
		CurrentStep:    2,
		Status:         session.StatusDraft,
		CreatedAt:      1700000000,
		UpdatedAt:      1700000100,
	}
	if err := fs.Save(in); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := fs.Load("fs-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if out.AssessmentType != in.AssessmentType || out.Org.Name != "Acme" ||
		out.Answers["rw-backup-offline"] != 3 || out.CategoryScores["backup"] != 50 ||
		out.CurrentStep != 2 || out.UpdatedAt != in.UpdatedAt {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}

func TestFSStore_SaveOverwrites(t *testing.T) {
	fs, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	s := session.Session{SessionID: "fs-2", AssessmentType: "x", Answers: map[string]int{"q": 0}}
	if err := fs.Save(s); err != nil {
		t.Fatal(err)
	}
	s.Answers["q"] = 3
	s.UpdatedAt = 42
	if err := fs.Save(s); err != nil {
		t.Fatal(err)
	}
	out, err := fs.Load("fs-2")
	if err != nil {
		t.Fatal(err)
	}
	if out.Answers["q"] != 3 || out.UpdatedAt != 42 {
		t.Fatalf("expected latest snapshot, got %+v", out)
	}
}

func TestFSStore_MissReturnsNotFound(t *testing.T) {
	fs, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fs.Load("never-saved"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFSStore_RejectsEmptyID(t *testing.T) {
	fs, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := fs.Save(session.Session{}); err == nil {
		t.Fatal("expected error for empty session id")
	}
}
