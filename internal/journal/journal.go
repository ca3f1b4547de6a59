package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/tliron/commonlog"

	"github.com/emmanuel-ferdman/roslyn/internal/scheduler"
)

// Edit is one recorded version transition of a document.
type Edit struct {
	Path        string
	FromVersion uint64
	ToVersion   uint64
	CreatedAt   time.Time
}

// HandleRecord is a persisted element handle: its stamp, owning path, kind
// name and encoded locator. It lets an automation client re-acquire handles
// across server restarts.
type HandleRecord struct {
	ID        string
	Path      string
	Kind      string
	Locator   []byte
	CreatedAt time.Time
}

// Journal persists version transitions and registered handles in sqlite.
// Edit recording is write-behind through a scheduler so installing a
// version never waits on the database; handle persistence is synchronous
// because callers need the write acknowledged.
type Journal struct {
	db    *sql.DB
	tasks *scheduler.Scheduler
	log   commonlog.Logger
}

// Open creates or opens the journal database at path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	if _, err := db.Exec(`
        PRAGMA foreign_keys = ON;
        PRAGMA journal_mode = WAL;
    `); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set PRAGMA: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	tasks := scheduler.New(256)
	tasks.Start()

	return &Journal{
		db:    db,
		tasks: tasks,
		log:   commonlog.GetLogger("journal"),
	}, nil
}

// Close drains pending writes and closes the database.
func (j *Journal) Close() error {
	j.tasks.Stop()
	if err := j.db.Close(); err != nil {
		return fmt.Errorf("failed to close journal database: %w", err)
	}
	return nil
}

// RecordEdit implements store.Recorder. The write happens in the
// background; the caller's edit session has already committed.
func (j *Journal) RecordEdit(path string, fromVersion, toVersion uint64) {
	createdAt := time.Now().Unix()
	j.tasks.Enqueue(scheduler.Task{
		Name: "record-edit",
		Run: func() error {
			_, err := j.db.Exec(
				"INSERT INTO edits (path, from_version, to_version, created_at) VALUES (?, ?, ?, ?)",
				path, fromVersion, toVersion, createdAt,
			)
			if err != nil {
				return fmt.Errorf("failed to record edit of %s: %w", path, err)
			}
			return nil
		},
	})
}

// Flush blocks until all queued edit records are written. Test and shutdown
// paths use it; the hot path never does.
func (j *Journal) Flush() {
	done := make(chan struct{})
	j.tasks.Enqueue(scheduler.Task{
		Name: "flush",
		Run: func() error {
			close(done)
			return nil
		},
	})
	<-done
}

// Edits returns the recorded transitions of one document, oldest first.
func (j *Journal) Edits(path string) ([]Edit, error) {
	rows, err := j.db.Query(
		"SELECT path, from_version, to_version, created_at FROM edits WHERE path = ? ORDER BY to_version",
		path,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query edits: %w", err)
	}
	defer rows.Close()

	var edits []Edit
	for rows.Next() {
		var e Edit
		var createdAt int64
		if err := rows.Scan(&e.Path, &e.FromVersion, &e.ToVersion, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan edit: %w", err)
		}
		e.CreatedAt = time.Unix(createdAt, 0)
		edits = append(edits, e)
	}
	return edits, rows.Err()
}

// SaveHandle persists one registered handle.
func (j *Journal) SaveHandle(rec HandleRecord) error {
	_, err := j.db.Exec(
		"INSERT OR REPLACE INTO handles (id, path, kind, locator, created_at) VALUES (?, ?, ?, ?, ?)",
		rec.ID, rec.Path, rec.Kind, rec.Locator, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save handle %s: %w", rec.ID, err)
	}
	return nil
}

// LoadHandles returns the persisted handles of one document.
func (j *Journal) LoadHandles(path string) ([]HandleRecord, error) {
	rows, err := j.db.Query(
		"SELECT id, path, kind, locator, created_at FROM handles WHERE path = ?",
		path,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query handles: %w", err)
	}
	defer rows.Close()

	var records []HandleRecord
	for rows.Next() {
		var rec HandleRecord
		var createdAt int64
		if err := rows.Scan(&rec.ID, &rec.Path, &rec.Kind, &rec.Locator, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan handle: %w", err)
		}
		rec.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteHandle removes one persisted handle.
func (j *Journal) DeleteHandle(id string) error {
	if _, err := j.db.Exec("DELETE FROM handles WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete handle %s: %w", id, err)
	}
	return nil
}

// StartPruning schedules periodic pruning of edit records older than the
// retention window. It stops when the journal closes.
func (j *Journal) StartPruning(interval, retention time.Duration) {
	j.tasks.Every(interval, scheduler.Task{
		Name: "prune-edits",
		Run: func() error {
			return j.Prune(retention)
		},
	})
}

// Prune drops edit records older than the retention window.
func (j *Journal) Prune(retention time.Duration) error {
	cutoff := time.Now().Add(-retention).Unix()
	if _, err := j.db.Exec("DELETE FROM edits WHERE created_at < ?", cutoff); err != nil {
		return fmt.Errorf("failed to prune edits: %w", err)
	}
	return nil
}
