package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// getOrCreateTagTx returns the id of tag name, creating it when missing.
func getOrCreateTagTx(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	var tagID int64
	err := tx.QueryRowContext(ctx, "SELECT id FROM tags WHERE name = ? COLLATE NOCASE", name).Scan(&tagID)
	if err == nil {
		return tagID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	result, err := tx.ExecContext(ctx, "INSERT INTO tags (name, created_at) VALUES (?, ?)", name, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to create tag: %w", err)
	}
	return result.LastInsertId()
}

// AddTagToFile attaches a tag to a file path, creating the tag if needed.
// The path must be indexed.
func (d *Database) AddTagToFile(ctx context.Context, filePath, tagName string) (err error) {
	done := observeQuery("add_tag_to_file")
	defer func() { done(err) }()

	tagName = strings.TrimSpace(tagName)
	if tagName == "" {
		return errors.New("tag name cannot be empty")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	b, err := d.BeginBatch(ctx)
	if err != nil {
		return err
	}

	var exists bool
	err = b.tx.QueryRowContext(ctx, "SELECT COUNT(*) > 0 FROM files WHERE path = ?", filePath).Scan(&exists)
	if err == nil && !exists {
		err = fmt.Errorf("file %s: %w", filePath, ErrNotFound)
	}
	if err == nil {
		var tagID int64
		tagID, err = getOrCreateTagTx(ctx, b.tx, tagName)
		if err == nil {
			_, err = b.tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO file_tags (path, tag_id, created_at) VALUES (?, ?, ?)",
				filePath, tagID, time.Now().Unix())
		}
	}
	return d.EndBatch(b, err)
}

// RemoveTagFromFile detaches a tag from a file. Removing an absent tag is
// not an error.
func (d *Database) RemoveTagFromFile(ctx context.Context, filePath, tagName string) (err error) {
	done := observeQuery("remove_tag_from_file")
	defer func() { done(err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		DELETE FROM file_tags
		WHERE path = ? AND tag_id = (SELECT id FROM tags WHERE name = ? COLLATE NOCASE)
	`, filePath, strings.TrimSpace(tagName))
	return err
}

// GetFileTags returns the tags of a file sorted by name.
func (d *Database) GetFileTags(ctx context.Context, filePath string) (_ []string, err error) {
	done := observeQuery("get_file_tags")
	defer func() { done(err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT t.name
		FROM tags t
		INNER JOIN file_tags ft ON t.id = ft.tag_id
		WHERE ft.path = ?
		ORDER BY t.name COLLATE NOCASE
	`, filePath)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tags = append(tags, name)
	}
	return tags, rows.Err()
}

// GetAllTags returns all tags with the number of files carrying each.
func (d *Database) GetAllTags(ctx context.Context) (_ []Tag, err error) {
	done := observeQuery("get_all_tags")
	defer func() { done(err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.created_at, COUNT(ft.path) AS item_count
		FROM tags t
		LEFT JOIN file_tags ft ON t.id = ft.tag_id
		GROUP BY t.id
		ORDER BY t.name COLLATE NOCASE
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []Tag{}
	for rows.Next() {
		var tag Tag
		var createdAt int64
		if err := rows.Scan(&tag.ID, &tag.Name, &createdAt, &tag.ItemCount); err != nil {
			return nil, err
		}
		tag.CreatedAt = time.Unix(createdAt, 0).UTC()
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// GetFilesByTag returns the indexed files carrying a tag, ordered by path.
func (d *Database) GetFilesByTag(ctx context.Context, tagName string) (_ []FileRecord, err error) {
	done := observeQuery("get_files_by_tag")
	defer func() { done(err) }()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT f.id, f.path, f.name, f.parent_dir, f.extension, f.section, f.size, f.mod_time,
			f.fingerprint, f.first_seen, f.last_seen, f.status, f.deleted_at
		FROM files f
		INNER JOIN file_tags ft ON f.path = ft.path
		INNER JOIN tags t ON ft.tag_id = t.id
		WHERE t.name = ? COLLATE NOCASE
		ORDER BY f.path ASC
	`, strings.TrimSpace(tagName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := []FileRecord{}
	for rows.Next() {
		rec, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, rec)
	}
	return files, rows.Err()
}

// DeleteTag removes a tag and its associations.
func (d *Database) DeleteTag(ctx context.Context, tagName string) (err error) {
	done := observeQuery("delete_tag")
	defer func() { done(err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx, "DELETE FROM tags WHERE name = ? COLLATE NOCASE", strings.TrimSpace(tagName))
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("tag %s: %w", tagName, ErrNotFound)
	}
	return nil
}
