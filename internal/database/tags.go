package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"plex-faces/internal/logging"
	"plex-faces/internal/metrics"
)

// Per-record transactions are short; a slow one points at lock contention
// with Plex itself.
const txTimeout = 10 * time.Second

// withTx runs fn inside a transaction, rolling back unless fn succeeds and
// the commit goes through.
func (d *Database) withTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, txTimeout)
	defer cancel()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		metrics.DBTransactionDuration.WithLabelValues("begin_error").Observe(time.Since(start).Seconds())
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.Error("rollback failed: %v", rbErr)
			}
			metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(time.Since(start).Seconds())
		}
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	metrics.DBTransactionDuration.WithLabelValues("commit").Observe(time.Since(start).Seconds())
	return nil
}

// Reconcile applies an extracted face list to a photo. An empty list only
// refreshes FaceUpdateTime and leaves existing tags alone; otherwise the
// photo's face tags are fully replaced.
func (d *Database) Reconcile(ctx context.Context, mid int64, faces []string) error {
	faces = normalizeFaces(faces)
	if len(faces) == 0 {
		return d.TouchFaceUpdate(ctx, mid)
	}
	return d.ReplaceFaceTags(ctx, mid, faces)
}

// ReplaceFaceTags deletes the photo's face tags, attaches faces in order and
// stamps FaceUpdateTime, all in one transaction.
func (d *Database) ReplaceFaceTags(ctx context.Context, mid int64, faces []string) error {
	done := observeQuery("reconcile")

	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now().Unix()
	err := d.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM taggings
			WHERE metadata_item_id = ?
			AND tag_id IN (SELECT id FROM tags WHERE tag_type = ?)
		`, mid, tagTypeFace)
		if err != nil {
			return fmt.Errorf("failed to delete face tags of %d: %w", mid, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			metrics.DBRowsAffected.WithLabelValues("reconcile_delete").Observe(float64(n))
		}

		for i, face := range normalizeFaces(faces) {
			tagID, err := getOrCreateTag(ctx, tx, face, now)
			if err != nil {
				return err
			}

			_, err = tx.ExecContext(ctx,
				`INSERT INTO taggings (metadata_item_id, tag_id, "index", created_at) VALUES (?, ?, ?, ?)`,
				mid, tagID, i, now,
			)
			if err != nil {
				return fmt.Errorf("failed to tag %d with %q: %w", mid, face, err)
			}
		}

		return touchFaceUpdate(ctx, tx, mid, now)
	})

	done(err)
	return err
}

// TouchFaceUpdate stamps FaceUpdateTime without changing tags.
func (d *Database) TouchFaceUpdate(ctx context.Context, mid int64) error {
	done := observeQuery("touch_face_update")

	d.mu.Lock()
	defer d.mu.Unlock()

	err := touchFaceUpdate(ctx, d.db, mid, time.Now().Unix())
	done(err)
	return err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func touchFaceUpdate(ctx context.Context, ex execer, mid, now int64) error {
	res, err := ex.ExecContext(ctx, "UPDATE metadata_items SET FaceUpdateTime = ? WHERE id = ?", now, mid)
	if err != nil {
		return fmt.Errorf("failed to update face time of %d: %w", mid, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("metadata item %d not found", mid)
	}
	return nil
}

func getOrCreateTag(ctx context.Context, tx *sql.Tx, name string, now int64) (int64, error) {
	var tagID int64
	err := tx.QueryRowContext(ctx,
		"SELECT id FROM tags WHERE tag = ? AND tag_type = ? ORDER BY id LIMIT 1",
		name, tagTypeFace,
	).Scan(&tagID)
	if err == nil {
		return tagID, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to look up tag %q: %w", name, err)
	}

	result, err := tx.ExecContext(ctx,
		"INSERT INTO tags (tag, tag_type, created_at, updated_at) VALUES (?, ?, ?, ?)",
		name, tagTypeFace, now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create tag %q: %w", name, err)
	}
	return result.LastInsertId()
}

// normalizeFaces trims labels and drops blanks and duplicates, keeping the
// first occurrence order.
func normalizeFaces(faces []string) []string {
	out := make([]string, 0, len(faces))
	seen := make(map[string]struct{}, len(faces))
	for _, f := range faces {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// GetFaceTags returns the face tags of a photo in tagging order.
func (d *Database) GetFaceTags(ctx context.Context, mid int64) ([]string, error) {
	done := observeQuery("get_face_tags")

	rows, err := d.db.QueryContext(ctx, `
		SELECT t.tag
		FROM taggings tg
		INNER JOIN tags t ON t.id = tg.tag_id
		WHERE tg.metadata_item_id = ? AND t.tag_type = ?
		ORDER BY tg."index", tg.id
	`, mid, tagTypeFace)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to query face tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			done(err)
			return nil, err
		}
		tags = append(tags, tag)
	}

	err = rows.Err()
	done(err)
	return tags, err
}

// CleanLoneTags deletes face tags no photo refers to and returns how many
// were removed.
func (d *Database) CleanLoneTags(ctx context.Context) (int64, error) {
	done := observeQuery("clean_lone_tags")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, txTimeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx, `
		DELETE FROM tags
		WHERE tag_type = ?
		AND id NOT IN (SELECT tag_id FROM taggings WHERE tag_id IS NOT NULL)
	`, tagTypeFace)
	if err != nil {
		err = fmt.Errorf("failed to clean lone tags: %w", err)
		done(err)
		return 0, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		done(err)
		return 0, err
	}
	metrics.DBRowsAffected.WithLabelValues("clean_lone_tags").Observe(float64(n))
	logging.Info("Removed %d lone face tags", n)

	done(nil)
	return n, nil
}

// ListTags returns the face tags selected by filter, one entry per
// (photo, tag) pair. Tags attached to no photo are listed with MID 0.
func (d *Database) ListTags(ctx context.Context, filter TagFilter) ([]Tag, error) {
	done := observeQuery("list_tags")

	rows, err := d.db.QueryContext(ctx, `
		SELECT t.id, t.tag, COALESCE(tg.metadata_item_id, 0), COALESCE(tg."index", 0)
		FROM tags t
		LEFT JOIN taggings tg ON tg.tag_id = t.id
		WHERE t.tag_type = ?
		ORDER BY t.tag, tg.metadata_item_id
	`, tagTypeFace)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var tag Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.MID, &tag.Index); err != nil {
			done(err)
			return nil, fmt.Errorf("failed to scan tag row: %w", err)
		}
		if filter.Matches(tag.Name) {
			tags = append(tags, tag)
		}
	}

	if err := rows.Err(); err != nil {
		done(err)
		return nil, err
	}

	done(nil)
	return tags, nil
}

// DeleteTags detaches every face tag selected by filter from every photo
// and returns the number of (photo, tag) pairs removed. The tags themselves
// are left for CleanLoneTags.
func (d *Database) DeleteTags(ctx context.Context, filter TagFilter) (int64, error) {
	done := observeQuery("delete_tags")

	matched, err := d.ListTags(ctx, filter)
	if err != nil {
		done(err)
		return 0, err
	}

	ids := make(map[int64]struct{}, len(matched))
	for _, t := range matched {
		ids[t.ID] = struct{}{}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var total int64
	err = d.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		for id := range ids {
			res, err := tx.ExecContext(ctx, "DELETE FROM taggings WHERE tag_id = ?", id)
			if err != nil {
				return fmt.Errorf("failed to delete taggings of tag %d: %w", id, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			total += n
		}
		return nil
	})
	if err != nil {
		done(err)
		return 0, err
	}

	metrics.DBRowsAffected.WithLabelValues("delete_tags").Observe(float64(total))
	logging.Info("Deleted %d face taggings across %d tags", total, len(ids))

	done(nil)
	return total, nil
}
