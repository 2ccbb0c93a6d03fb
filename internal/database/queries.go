package database

import (
	"context"
	"database/sql"
	"fmt"
	"path"
	"sort"
	"strings"
)

// escapeLike escapes LIKE wildcards so s matches literally with ESCAPE '\'.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// buildWhere turns the predicates of q into a WHERE clause and its arguments.
func buildWhere(q FileQuery) (string, []any) {
	var clauses []string
	var args []any

	if !q.IncludeDeleted {
		clauses = append(clauses, "status = 'active'")
	}
	if q.NameContains != "" {
		// LIKE folds ASCII case only, matching the in-memory predicate
		clauses = append(clauses, `name LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(q.NameContains)+"%")
	}
	if q.Extension != "" {
		clauses = append(clauses, "extension = ?")
		args = append(args, q.Extension)
	}
	if q.Section != nil {
		clauses = append(clauses, "section = ?")
		args = append(args, *q.Section)
	}
	if q.PathPrefix != "" {
		// instr is case-sensitive, unlike LIKE
		clauses = append(clauses, "instr(path, ?) = 1")
		args = append(args, q.PathPrefix)
	}
	if q.ModifiedAfter != nil {
		clauses = append(clauses, "mod_time >= ?")
		args = append(args, q.ModifiedAfter.UnixNano())
	}
	if q.ModifiedBefore != nil {
		clauses = append(clauses, "mod_time <= ?")
		args = append(args, q.ModifiedBefore.UnixNano())
	}
	if q.SizeMin != nil {
		clauses = append(clauses, "size >= ?")
		args = append(args, *q.SizeMin)
	}
	if q.SizeMax != nil {
		clauses = append(clauses, "size <= ?")
		args = append(args, *q.SizeMax)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// buildOrderBy returns the ORDER BY clause. Ties on the primary key are always
// broken by path ascending so pages never overlap.
func buildOrderBy(key SortKey, dir SortDir) string {
	direction := "ASC"
	if dir == SortDesc {
		direction = "DESC"
	}

	var column string
	switch key {
	case SortByDate:
		column = "mod_time"
	case SortBySize:
		column = "size"
	case SortBySection:
		column = "section"
	default:
		column = "name COLLATE NOCASE"
	}

	return fmt.Sprintf(" ORDER BY %s %s, path ASC", column, direction)
}

// QueryFiles returns one page of records matching q and the total match
// count. Both come from the same committed snapshot.
func (d *Database) QueryFiles(ctx context.Context, q FileQuery) (_ *FilePage, err error) {
	done := observeQuery("query_files")
	defer func() { done(err) }()

	where, args := buildWhere(q)
	page := &FilePage{Items: []FileRecord{}}

	err = d.readTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM files"+where, args...).Scan(&page.Total); err != nil {
			return fmt.Errorf("count: %w", err)
		}
		if page.Total == 0 || q.Offset >= page.Total {
			return nil
		}

		query := "SELECT " + fileColumns + " FROM files" + where + buildOrderBy(q.Sort, q.Dir)
		pageArgs := append([]any(nil), args...)
		if q.Limit > 0 {
			query += " LIMIT ? OFFSET ?"
			pageArgs = append(pageArgs, q.Limit, q.Offset)
		} else if q.Offset > 0 {
			query += " LIMIT -1 OFFSET ?"
			pageArgs = append(pageArgs, q.Offset)
		}

		rows, err := tx.QueryContext(ctx, query, pageArgs...)
		if err != nil {
			return fmt.Errorf("select: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			rec, err := scanFile(rows)
			if err != nil {
				return err
			}
			page.Items = append(page.Items, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// ListDirectory returns the immediate child directories of dir (with
// recursive active file counts) and the active files directly inside it.
// dir is a corpus-relative path; "" is the root.
func (d *Database) ListDirectory(ctx context.Context, dir string) (_ *DirectoryListing, err error) {
	done := observeQuery("list_directory")
	defer func() { done(err) }()

	dir = strings.Trim(dir, "/")
	listing := &DirectoryListing{
		Path:        dir,
		Breadcrumb:  buildBreadcrumb(dir),
		Directories: []DirectoryEntry{},
		Files:       []FileRecord{},
	}

	prefix := ""
	if dir != "" {
		prefix = dir + "/"
	}

	err = d.readTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT `+fileColumns+` FROM files
			 WHERE status = 'active' AND (? = '' OR instr(path, ?) = 1)
			 ORDER BY path ASC`, prefix, prefix)
		if err != nil {
			return err
		}
		defer rows.Close()

		counts := make(map[string]int)
		for rows.Next() {
			rec, err := scanFile(rows)
			if err != nil {
				return err
			}
			rest := strings.TrimPrefix(rec.Path, prefix)
			if child, _, nested := strings.Cut(rest, "/"); nested {
				counts[child]++
				continue
			}
			listing.Files = append(listing.Files, rec)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		for name, n := range counts {
			listing.Directories = append(listing.Directories, DirectoryEntry{
				Name:      name,
				Path:      path.Join(dir, name),
				FileCount: n,
			})
		}
		sort.Slice(listing.Directories, func(i, j int) bool {
			return listing.Directories[i].Name < listing.Directories[j].Name
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if dir != "" && len(listing.Files) == 0 && len(listing.Directories) == 0 {
		return nil, fmt.Errorf("directory %s: %w", dir, ErrNotFound)
	}
	return listing, nil
}

func buildBreadcrumb(dir string) []PathPart {
	breadcrumb := []PathPart{
		{Name: "Corpus", Path: ""},
	}

	if dir == "" {
		return breadcrumb
	}

	current := ""
	for _, part := range strings.Split(dir, "/") {
		if part == "" {
			continue
		}
		current = path.Join(current, part)
		breadcrumb = append(breadcrumb, PathPart{Name: part, Path: current})
	}

	return breadcrumb
}

// ListSections returns the distinct sections of active files, sorted.
func (d *Database) ListSections(ctx context.Context) (_ []string, err error) {
	done := observeQuery("list_sections")
	defer func() { done(err) }()

	rows, err := d.db.QueryContext(ctx,
		`SELECT DISTINCT section FROM files WHERE status = 'active' ORDER BY section`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sections := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		sections = append(sections, s)
	}
	return sections, rows.Err()
}
