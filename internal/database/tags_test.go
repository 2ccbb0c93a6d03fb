package database

import (
	"context"
	"errors"
	"testing"
)

func TestTags(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seed(t, db, record("a.md", 1, baseTime), record("b.md", 2, baseTime))

	if err := db.AddTagToFile(ctx, "a.md", "Urgent"); err != nil {
		t.Fatalf("AddTagToFile failed: %v", err)
	}
	// Same tag with different case reuses the existing tag.
	if err := db.AddTagToFile(ctx, "b.md", "urgent"); err != nil {
		t.Fatalf("AddTagToFile failed: %v", err)
	}
	if err := db.AddTagToFile(ctx, "a.md", "draft"); err != nil {
		t.Fatalf("AddTagToFile failed: %v", err)
	}
	// Idempotent.
	if err := db.AddTagToFile(ctx, "a.md", "draft"); err != nil {
		t.Fatalf("AddTagToFile repeat failed: %v", err)
	}

	tags, err := db.GetFileTags(ctx, "a.md")
	if err != nil {
		t.Fatalf("GetFileTags failed: %v", err)
	}
	if len(tags) != 2 || tags[0] != "draft" || tags[1] != "Urgent" {
		t.Errorf("unexpected tags: %v", tags)
	}

	all, err := db.GetAllTags(ctx)
	if err != nil {
		t.Fatalf("GetAllTags failed: %v", err)
	}
	if len(all) != 2 || all[1].Name != "Urgent" || all[1].ItemCount != 2 {
		t.Errorf("unexpected tag list: %+v", all)
	}

	files, err := db.GetFilesByTag(ctx, "URGENT")
	if err != nil {
		t.Fatalf("GetFilesByTag failed: %v", err)
	}
	if len(files) != 2 || files[0].Path != "a.md" {
		t.Errorf("unexpected tagged files: %v", paths(files))
	}

	if err := db.RemoveTagFromFile(ctx, "a.md", "urgent"); err != nil {
		t.Fatalf("RemoveTagFromFile failed: %v", err)
	}
	files, _ = db.GetFilesByTag(ctx, "urgent")
	if len(files) != 1 || files[0].Path != "b.md" {
		t.Errorf("unexpected tagged files after remove: %v", paths(files))
	}

	if err := db.DeleteTag(ctx, "draft"); err != nil {
		t.Fatalf("DeleteTag failed: %v", err)
	}
	if err := db.DeleteTag(ctx, "draft"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	tags, _ = db.GetFileTags(ctx, "a.md")
	if len(tags) != 0 {
		t.Errorf("expected no tags on a.md, got %v", tags)
	}
}

func TestAddTagValidation(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seed(t, db, record("a.md", 1, baseTime))

	if err := db.AddTagToFile(ctx, "a.md", "  "); err == nil {
		t.Error("expected error for empty tag name")
	}
	if err := db.AddTagToFile(ctx, "ghost.md", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unindexed path, got %v", err)
	}
}
