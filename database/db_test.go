package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/korjavin/quizbot/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "quizbot.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNew_UnopenablePath(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "missing", "dir", "quiz.db"))
	if err == nil {
		db.Close()
		t.Fatal("expected error opening a database in a missing directory")
	}
}

func TestAddAndHistory(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC)

	records := []models.HistoryRecord{
		{ID: "a", UserID: 7, Title: "Geo", Level: models.LevelEasy, Points: 1, Questions: 2, CompletedAt: base},
		{ID: "b", UserID: 7, Title: "Go", Level: models.LevelHard, Points: 3, Questions: 3, CompletedAt: base.Add(time.Minute)},
		{ID: "c", UserID: 8, Title: "Other", Level: models.LevelMedium, Points: 0, Questions: 1, CompletedAt: base},
	}
	for _, rec := range records {
		if err := db.Add(ctx, rec); err != nil {
			t.Fatalf("add %s: %v", rec.ID, err)
		}
	}

	got, err := db.History(ctx, 7, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("history len = %d, want 2", len(got))
	}
	if got[0].ID != "b" || got[1].ID != "a" {
		t.Fatalf("history order = %s,%s, want b,a", got[0].ID, got[1].ID)
	}
	if got[0].Level != models.LevelHard || got[0].Points != 3 || got[0].Questions != 3 {
		t.Fatalf("record = %+v, want level HARD points 3 questions 3", got[0])
	}
	if !got[1].CompletedAt.Equal(base) {
		t.Fatalf("completed at = %s, want %s", got[1].CompletedAt, base)
	}

	limited, err := db.History(ctx, 7, 1)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("limited len = %d, want 1", len(limited))
	}
}

func TestAdd_DuplicateIDFails(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	rec := models.HistoryRecord{ID: "dup", UserID: 1, Title: "T", Level: models.LevelEasy, CompletedAt: time.Now()}
	if err := db.Add(ctx, rec); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := db.Add(ctx, rec); err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestRemoveHistory(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	rec := models.HistoryRecord{ID: "r1", UserID: 1, Title: "T", Level: models.LevelEasy, CompletedAt: time.Now()}
	if err := db.Add(ctx, rec); err != nil {
		t.Fatalf("add: %v", err)
	}

	removed, err := db.RemoveHistory(ctx, 2, "r1")
	if err != nil || removed {
		t.Fatalf("remove other user = %v, %v, want false, nil", removed, err)
	}
	removed, err = db.RemoveHistory(ctx, 1, "r1")
	if err != nil || !removed {
		t.Fatalf("remove = %v, %v, want true, nil", removed, err)
	}
	got, err := db.History(ctx, 1, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("history len = %d, want 0", len(got))
	}
}

func TestUserStats(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	answers := []models.AnswerActivity{
		{UserID: 1, QuizID: "q", QuestionIndex: 0, Alternative: 1, Correct: true},
		{UserID: 1, QuizID: "q", QuestionIndex: 1, Alternative: 0, Correct: false},
		{UserID: 1, QuizID: "q", QuestionIndex: 2, Alternative: 2, Correct: true},
		{UserID: 2, QuizID: "q", QuestionIndex: 0, Alternative: 1, Correct: true},
	}
	for _, a := range answers {
		if err := db.SaveAnswer(ctx, a); err != nil {
			t.Fatalf("save answer: %v", err)
		}
	}
	if err := db.Add(ctx, models.HistoryRecord{ID: "h", UserID: 1, Title: "T", Level: models.LevelEasy, CompletedAt: time.Now()}); err != nil {
		t.Fatalf("add: %v", err)
	}

	correct, incorrect, completed, err := db.UserStats(ctx, 1)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if correct != 2 || incorrect != 1 || completed != 1 {
		t.Fatalf("stats = %d/%d/%d, want 2/1/1", correct, incorrect, completed)
	}
}

func TestExplanationCache(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	got, err := db.CachedExplanation(ctx, "q", 0)
	if err != nil || got != "" {
		t.Fatalf("empty cache = %q, %v, want \"\", nil", got, err)
	}
	if err := db.CacheExplanation(ctx, "q", 0, "first"); err != nil {
		t.Fatalf("cache: %v", err)
	}
	if err := db.CacheExplanation(ctx, "q", 0, "second"); err != nil {
		t.Fatalf("cache: %v", err)
	}
	got, err = db.CachedExplanation(ctx, "q", 0)
	if err != nil || got != "second" {
		t.Fatalf("cached = %q, %v, want second, nil", got, err)
	}
}
