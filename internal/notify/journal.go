package notify

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rileyhilliard/hostwatch/internal/errors"
)

// DefaultRecent is the number of events Recent returns for a limit <= 0.
const DefaultRecent = 50

const journalSchema = `CREATE TABLE IF NOT EXISTS alerts (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL UNIQUE,
	kind        TEXT NOT NULL,
	target_id   TEXT NOT NULL,
	target_name TEXT NOT NULL,
	host        TEXT NOT NULL,
	connected   INTEGER,
	message     TEXT NOT NULL,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_alerts_target ON alerts(target_id, seq);`

// Journal records events in SQLite.
type Journal struct {
	db *sql.DB
}

// OpenJournal opens (or creates) the journal database at path.
func OpenJournal(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrFS,
				"Couldn't create journal directory "+dir, "")
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrFS, "Couldn't open alert journal "+path, "")
	}
	// One writer keeps SQLite from returning SQLITE_BUSY under concurrent merges.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(journalSchema); err != nil {
		db.Close()
		return nil, errors.WrapWithCode(err, errors.ErrFS, "Couldn't prepare alert journal "+path,
			"Delete the file to start a fresh journal")
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Name() string { return "journal" }

// Send implements Sink.
func (j *Journal) Send(e Event) error {
	var connected sql.NullBool
	if e.Connected != nil {
		connected = sql.NullBool{Bool: *e.Connected, Valid: true}
	}
	_, err := j.db.Exec(`INSERT INTO alerts(id,kind,target_id,target_name,host,connected,message,created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		e.ID, e.Kind, e.TargetID, e.TargetName, e.Host, connected, e.Message, e.Time.UnixNano())
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrFS, "Couldn't record alert", "")
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (j *Journal) Recent(limit int) ([]Event, error) {
	return j.query(`SELECT id,kind,target_id,target_name,host,connected,message,created_at
		FROM alerts ORDER BY seq DESC LIMIT ?`, normalizeLimit(limit))
}

// RecentForTarget returns up to limit events of one target, newest first.
func (j *Journal) RecentForTarget(targetID string, limit int) ([]Event, error) {
	return j.query(`SELECT id,kind,target_id,target_name,host,connected,message,created_at
		FROM alerts WHERE target_id = ? ORDER BY seq DESC LIMIT ?`, targetID, normalizeLimit(limit))
}

// Prune keeps the newest maxRows events.
func (j *Journal) Prune(maxRows int) error {
	if maxRows <= 0 {
		return nil
	}
	_, err := j.db.Exec(`DELETE FROM alerts WHERE seq IN
		(SELECT seq FROM alerts ORDER BY seq DESC LIMIT -1 OFFSET ?)`, maxRows)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrFS, "Couldn't prune alert journal", "")
	}
	return nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) query(q string, args ...any) ([]Event, error) {
	rows, err := j.db.Query(q, args...)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrFS, "Couldn't read alert journal", "")
	}
	defer rows.Close()

	list := []Event{}
	for rows.Next() {
		var (
			e         Event
			connected sql.NullBool
			created   int64
		)
		if err := rows.Scan(&e.ID, &e.Kind, &e.TargetID, &e.TargetName, &e.Host, &connected, &e.Message, &created); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrFS, "Couldn't read alert journal", "")
		}
		if connected.Valid {
			v := connected.Bool
			e.Connected = &v
		}
		e.Time = time.Unix(0, created).UTC()
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrFS, "Couldn't read alert journal", "")
	}
	return list, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecent
	}
	return limit
}
