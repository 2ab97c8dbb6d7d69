package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

// ListPhotos returns every photo record of the library with its first
// media part file and the last face update time.
func (d *Database) ListPhotos(ctx context.Context) ([]PhotoRecord, error) {
	done := observeQuery("list_photos")

	rows, err := d.db.QueryContext(ctx, `
		SELECT mi.id, MIN(mp.file), mi.FaceUpdateTime
		FROM metadata_items mi
		INNER JOIN media_items me ON me.metadata_item_id = mi.id
		INNER JOIN media_parts mp ON mp.media_item_id = me.id
		WHERE mi.metadata_type = ? AND mp.file IS NOT NULL AND mp.file != ''
		GROUP BY mi.id
		ORDER BY mi.id
	`, metadataTypePhoto)
	if err != nil {
		err = fmt.Errorf("failed to list photos: %w", err)
		done(err)
		return nil, err
	}
	defer rows.Close()

	var records []PhotoRecord
	for rows.Next() {
		var rec PhotoRecord
		var updated any
		if err := rows.Scan(&rec.MID, &rec.File, &updated); err != nil {
			done(err)
			return nil, fmt.Errorf("failed to scan photo row: %w", err)
		}
		rec.FaceUpdatedAt = parseUpdateTime(updated)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		done(err)
		return nil, fmt.Errorf("failed to iterate photos: %w", err)
	}

	done(nil)
	return records, nil
}

// FaceUpdatedAt returns the FaceUpdateTime of one record.
func (d *Database) FaceUpdatedAt(ctx context.Context, mid int64) (time.Time, error) {
	var updated any
	err := d.db.QueryRowContext(ctx,
		"SELECT FaceUpdateTime FROM metadata_items WHERE id = ?", mid,
	).Scan(&updated)
	if err == sql.ErrNoRows {
		return time.Time{}, fmt.Errorf("metadata item %d not found", mid)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read face update time: %w", err)
	}
	return parseUpdateTime(updated), nil
}

// parseUpdateTime converts a stored update time to a time.Time. Plex keeps
// datetime columns as epoch seconds; older rows written as text are also
// accepted. Anything unreadable counts as never updated.
func parseUpdateTime(v any) time.Time {
	switch t := v.(type) {
	case int64:
		if t <= 0 {
			return time.Time{}
		}
		return time.Unix(t, 0)
	case float64:
		if t <= 0 {
			return time.Time{}
		}
		return time.Unix(int64(t), 0)
	case time.Time:
		return t
	case []byte:
		return parseUpdateTimeString(string(t))
	case string:
		return parseUpdateTimeString(t)
	default:
		return time.Time{}
	}
}

var updateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseUpdateTimeString(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return parseUpdateTime(secs)
	}
	for _, layout := range updateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}
