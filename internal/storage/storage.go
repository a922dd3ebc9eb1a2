package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

var db *sql.DB

// Run is one automation run's persisted state. It is the durable half of the
// collector's state: the in-process run object cancels through its context,
// the persisted row is the cross-run interlock and the crash indicator.
type Run struct {
	ID         string
	Active     bool
	Quota      int
	AgeLimit   string
	URNs       []string
	Reason     string
	Message    string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Post is a collected LinkedIn post identifier.
type Post struct {
	ID           int64
	URN          string
	DiscoveredAt time.Time
	Engaged      bool
	EngagedAt    *time.Time
}

// Engagement records one posted (or drafted) comment.
type Engagement struct {
	ID        int64
	URN       string
	Comment   string
	Mode      string
	CreatedAt time.Time
}

// CommentSettings is the flat settings record consulted on every generation
// request. The JSON names are the wire format page scripts see.
type CommentSettings struct {
	Goal      string `json:"goal"`
	Tone      string `json:"tone"`
	Length    string `json:"length"`
	Expertise string `json:"expertise"`
	Autopost  string `json:"autopost"`
}

// InitDB opens the database and creates the schema.
func InitDB(dbPath string) error {
	var err error
	db, err = sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if err := createTables(); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

func createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS automation_runs (
		id TEXT PRIMARY KEY,
		active BOOLEAN DEFAULT TRUE,
		quota INTEGER NOT NULL,
		age_limit TEXT DEFAULT '',
		urns TEXT DEFAULT '[]',
		reason TEXT DEFAULT '',
		message TEXT DEFAULT '',
		started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		finished_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS posts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		urn TEXT UNIQUE NOT NULL,
		discovered_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		engaged BOOLEAN DEFAULT FALSE,
		engaged_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS engagements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		urn TEXT NOT NULL,
		comment TEXT NOT NULL,
		mode TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS usage (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		ts TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS comment_settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		goal TEXT NOT NULL,
		tone TEXT NOT NULL,
		length TEXT NOT NULL,
		expertise TEXT NOT NULL,
		autopost TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_posts_urn ON posts(urn);
	CREATE INDEX IF NOT EXISTS idx_engagements_urn ON engagements(urn);
	CREATE INDEX IF NOT EXISTS idx_usage_kind_ts ON usage(kind, ts);
	CREATE INDEX IF NOT EXISTS idx_runs_active ON automation_runs(active);
	`

	_, err := db.Exec(schema)
	return err
}

// Close closes the database connection.
func Close() error {
	if db != nil {
		return db.Close()
	}
	return nil
}

// BeginRun deactivates any previous run and records a new active one. A run
// from a crashed process is therefore reclaimed here rather than trusted to
// have cleaned up after itself.
func BeginRun(id string, quota int, ageLimit string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin run: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE automation_runs SET active = FALSE, reason = 'superseded', finished_at = CURRENT_TIMESTAMP WHERE active = TRUE`); err != nil {
		return fmt.Errorf("failed to supersede previous run: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO automation_runs (id, active, quota, age_limit) VALUES (?, TRUE, ?, ?)`, id, quota, ageLimit); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return tx.Commit()
}

// ActiveRun returns the id of the currently active run, if any.
func ActiveRun() (string, bool, error) {
	var id string
	err := db.QueryRow(`SELECT id FROM automation_runs WHERE active = TRUE ORDER BY started_at DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query active run: %w", err)
	}
	return id, true, nil
}

// CancelRun flips the active flag off. The collector observes this at its
// next iteration boundary.
func CancelRun(id string) error {
	return finishRun(id, "cancelled", "")
}

// FinishRun marks a run complete with its exit reason.
func FinishRun(id, reason, message string) error {
	return finishRun(id, reason, message)
}

func finishRun(id, reason, message string) error {
	res, err := db.Exec(`UPDATE automation_runs SET active = FALSE, reason = ?, message = ?, finished_at = CURRENT_TIMESTAMP WHERE id = ?`, reason, message, id)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no run found with id %s", id)
	}
	return nil
}

// SaveRunURNs persists the collected URN list for a run.
func SaveRunURNs(id string, urns []string) error {
	data, err := json.Marshal(urns)
	if err != nil {
		return fmt.Errorf("failed to marshal urns: %w", err)
	}
	if _, err := db.Exec(`UPDATE automation_runs SET urns = ? WHERE id = ?`, string(data), id); err != nil {
		return fmt.Errorf("failed to save run urns: %w", err)
	}
	return nil
}

// GetRun loads one run by id.
func GetRun(id string) (*Run, error) {
	var r Run
	var urns string
	var finished sql.NullTime
	err := db.QueryRow(`
		SELECT id, active, quota, age_limit, urns, reason, message, started_at, finished_at
		FROM automation_runs WHERE id = ?`, id).
		Scan(&r.ID, &r.Active, &r.Quota, &r.AgeLimit, &urns, &r.Reason, &r.Message, &r.StartedAt, &finished)
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	if err := json.Unmarshal([]byte(urns), &r.URNs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal urns: %w", err)
	}
	if finished.Valid {
		r.FinishedAt = &finished.Time
	}
	return &r, nil
}

// LatestRun returns the most recently started run, finished or not.
func LatestRun() (*Run, error) {
	var id string
	err := db.QueryRow(`SELECT id FROM automation_runs ORDER BY started_at DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest run: %w", err)
	}
	return GetRun(id)
}

// SavePost records a collected post URN, ignoring duplicates.
func SavePost(urn string) error {
	_, err := db.Exec(`INSERT INTO posts (urn) VALUES (?) ON CONFLICT(urn) DO NOTHING`, urn)
	if err != nil {
		return fmt.Errorf("failed to save post: %w", err)
	}
	return nil
}

// PostExists reports whether a URN was collected before.
func PostExists(urn string) (bool, error) {
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM posts WHERE urn = ?`, urn).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check post existence: %w", err)
	}
	return count > 0, nil
}

// MarkEngaged flags a post as engaged.
func MarkEngaged(urn string) error {
	if _, err := db.Exec(`UPDATE posts SET engaged = TRUE, engaged_at = CURRENT_TIMESTAMP WHERE urn = ?`, urn); err != nil {
		return fmt.Errorf("failed to mark post engaged: %w", err)
	}
	return nil
}

// RecordEngagement logs one posted or drafted comment.
func RecordEngagement(e Engagement) error {
	_, err := db.Exec(`INSERT INTO engagements (urn, comment, mode) VALUES (?, ?, ?)`, e.URN, e.Comment, e.Mode)
	if err != nil {
		return fmt.Errorf("failed to record engagement: %w", err)
	}
	return nil
}

// RecordUsage counts one action of the given kind toward the daily limit.
func RecordUsage(kind string) error {
	if _, err := db.Exec(`INSERT INTO usage (kind) VALUES (?)`, kind); err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}

// DailyUsage returns how many actions of the given kind happened today.
func DailyUsage(kind string) (int, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM usage WHERE kind = ? AND DATE(ts) = DATE('now')`, kind).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get daily usage: %w", err)
	}
	return count, nil
}

// GetCommentSettings returns the stored settings, or defaults when none are
// stored yet.
func GetCommentSettings(defaults CommentSettings) (CommentSettings, error) {
	var s CommentSettings
	err := db.QueryRow(`SELECT goal, tone, length, expertise, autopost FROM comment_settings WHERE id = 1`).
		Scan(&s.Goal, &s.Tone, &s.Length, &s.Expertise, &s.Autopost)
	if err == sql.ErrNoRows {
		return defaults, nil
	}
	if err != nil {
		return s, fmt.Errorf("failed to load comment settings: %w", err)
	}
	return s, nil
}

// SaveCommentSettings upserts the settings record.
func SaveCommentSettings(s CommentSettings) error {
	_, err := db.Exec(`
		INSERT INTO comment_settings (id, goal, tone, length, expertise, autopost)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			goal = excluded.goal,
			tone = excluded.tone,
			length = excluded.length,
			expertise = excluded.expertise,
			autopost = excluded.autopost`,
		s.Goal, s.Tone, s.Length, s.Expertise, s.Autopost)
	if err != nil {
		return fmt.Errorf("failed to save comment settings: %w", err)
	}
	return nil
}

// CleanupOldUsage removes usage rows older than 30 days.
func CleanupOldUsage() error {
	if _, err := db.Exec(`DELETE FROM usage WHERE ts < datetime('now', '-30 days')`); err != nil {
		return fmt.Errorf("failed to cleanup old usage: %w", err)
	}
	return nil
}

// GetStats returns summary counts for the stats command.
func GetStats() (map[string]int, error) {
	stats := make(map[string]int)

	queries := map[string]string{
		"total_posts":       `SELECT COUNT(*) FROM posts`,
		"engaged_posts":     `SELECT COUNT(*) FROM posts WHERE engaged = TRUE`,
		"total_engagements": `SELECT COUNT(*) FROM engagements`,
		"total_runs":        `SELECT COUNT(*) FROM automation_runs`,
		"generations_today": `SELECT COUNT(*) FROM usage WHERE kind = 'generation' AND DATE(ts) = DATE('now')`,
	}

	for key, q := range queries {
		var n int
		if err := db.QueryRow(q).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to compute %s: %w", key, err)
		}
		stats[key] = n
	}

	return stats, nil
}
