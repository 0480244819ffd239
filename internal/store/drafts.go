package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rondalog/rondalog/internal/model"
)

const draftColumns = `id, source, received_at, raw_text, corrected_text, email_variant, used_fallback,
	event_date, event_time, location, incident, shift_code, category_id`

// InsertDraft records a human-confirmed draft. Saving the same ID twice
// replaces the earlier copy.
func (db *DB) InsertDraft(rec *model.DraftRecord) error {
	f := rec.Fields
	_, err := db.Exec(
		`INSERT OR REPLACE INTO drafts (`+draftColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Source),
		rec.ReceivedAt.UTC().Format(time.RFC3339),
		rec.RawText, rec.Correction.CorrectedText,
		nullString(rec.Correction.EmailVariant),
		rec.Correction.UsedFallback,
		nullDate(f.Date), nullClock(f.Time),
		nullPtr(f.Location), nullPtr(f.Incident),
		nullPtr(f.ShiftCode), nullPtr(f.CategoryID),
	)
	if err != nil {
		return fmt.Errorf("inserting draft: %w", err)
	}
	return nil
}

// ListDrafts returns the drafts whose event happened on day, plus undated
// drafts received that day in loc.
func (db *DB) ListDrafts(day model.Date, loc *time.Location) ([]model.DraftRecord, error) {
	start := day.In(loc)
	end := day.AddDays(1).In(loc)
	return db.queryDrafts(
		`SELECT `+draftColumns+` FROM drafts
		 WHERE event_date = ?
		    OR (event_date IS NULL AND received_at >= ? AND received_at < ?)
		 ORDER BY event_date, event_time, received_at`,
		day.String(),
		start.UTC().Format(time.RFC3339),
		end.UTC().Format(time.RFC3339),
	)
}

// RecentDrafts returns the newest drafts first.
func (db *DB) RecentDrafts(limit int) ([]model.DraftRecord, error) {
	return db.queryDrafts(
		`SELECT `+draftColumns+` FROM drafts ORDER BY received_at DESC LIMIT ?`,
		limit,
	)
}

func (db *DB) queryDrafts(query string, args ...interface{}) ([]model.DraftRecord, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying drafts: %w", err)
	}
	defer rows.Close()

	var drafts []model.DraftRecord
	for rows.Next() {
		var rec model.DraftRecord
		var source, receivedStr string
		var email, date, clock, location, incident, code, category sql.NullString

		if err := rows.Scan(
			&rec.ID, &source, &receivedStr, &rec.RawText, &rec.Correction.CorrectedText,
			&email, &rec.Correction.UsedFallback,
			&date, &clock, &location, &incident, &code, &category,
		); err != nil {
			return nil, fmt.Errorf("scanning draft: %w", err)
		}

		rec.Source = model.Source(source)
		rec.Correction.EmailVariant = email.String
		if t, err := time.Parse(time.RFC3339, receivedStr); err == nil {
			rec.ReceivedAt = t
		}

		f := &rec.Fields
		if date.Valid {
			var d model.Date
			if err := d.UnmarshalText([]byte(date.String)); err == nil {
				f.Date = &d
			}
		}
		if clock.Valid {
			var t model.TimeOfDay
			if err := t.UnmarshalText([]byte(clock.String)); err == nil {
				f.Time = &t
			}
		}
		f.Location = ptrOf(location)
		f.Incident = ptrOf(incident)
		if code.Valid {
			c := model.ShiftCode(code.String)
			f.ShiftCode = &c
		}
		f.CategoryID = ptrOf(category)
		rec.Missing = f.MissingFields()

		drafts = append(drafts, rec)
	}

	return drafts, rows.Err()
}

// InsertLetter records an issued letter and its variables.
func (db *DB) InsertLetter(kind string, vars map[string]string, text string) (int64, error) {
	encoded, err := json.Marshal(vars)
	if err != nil {
		return 0, fmt.Errorf("encoding letter variables: %w", err)
	}
	result, err := db.Exec(
		"INSERT INTO letters (kind, variables, letter_text) VALUES (?, ?, ?)",
		kind, string(encoded), text,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting letter: %w", err)
	}
	return result.LastInsertId()
}

// CountLetters returns how many letters of each kind were issued.
func (db *DB) CountLetters() (map[string]int, error) {
	rows, err := db.Query("SELECT kind, COUNT(*) FROM letters GROUP BY kind")
	if err != nil {
		return nil, fmt.Errorf("counting letters: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scanning letter count: %w", err)
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullDate(d *model.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func nullClock(t *model.TimeOfDay) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.String(), Valid: true}
}

func nullPtr[T ~string](p *T) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*p), Valid: true}
}

func ptrOf(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
