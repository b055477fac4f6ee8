package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/crystalford/canopticon-sub002/internal/model"
)

// Verify at compile time that Store implements all interfaces.
var (
	_ SourceStore   = (*Store)(nil)
	_ RawStore      = (*Store)(nil)
	_ ClusterStore  = (*Store)(nil)
	_ SignalReader  = (*Store)(nil)
	_ SignalWriter  = (*Store)(nil)
	_ SignalClaimer = (*Store)(nil)
	_ ArticleStore  = (*Store)(nil)
	_ CycleLogStore = (*Store)(nil)
)

// ErrDuplicate is returned when an insert collides with existing content
// (same content hash, or same article slug).
var ErrDuplicate = errors.New("duplicate content")

// ErrConflict is returned when a conditional update finds the row in a
// different state than expected (e.g. a status transition lost a race).
var ErrConflict = errors.New("state conflict")

// Store provides data access to the SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and initialises the schema.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// currentSchemaVersion is bumped whenever the schema changes.
// Add a new migration function in the migrations slice below.
const currentSchemaVersion = 2

func (s *Store) migrate() error {
	// Ensure the schema_version table exists.
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var version int
	err := s.db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		// Fresh database: initialize to version 0.
		if _, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES (0)`); err != nil {
			return fmt.Errorf("init schema version: %w", err)
		}
		version = 0
	} else if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	// migrations is an ordered list of migration functions.
	// Index 0 = migration from v0 to v1, etc.
	migrations := []func() error{
		s.migrateV1, // v0 → v1: initial schema
		s.migrateV2, // v1 → v2: add cycle_logs table
	}

	for i := version; i < len(migrations); i++ {
		if err := migrations[i](); err != nil {
			return fmt.Errorf("migration v%d→v%d: %w", i, i+1, err)
		}
		if _, err := s.db.Exec(`UPDATE schema_version SET version = ?`, i+1); err != nil {
			return fmt.Errorf("update schema version to %d: %w", i+1, err)
		}
	}

	return nil
}

// migrateV1 creates the initial schema (v0 → v1).
func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sources (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		url        TEXT NOT NULL,
		kind       TEXT NOT NULL,
		active     INTEGER NOT NULL DEFAULT 1,
		priority   INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS raw_articles (
		id           TEXT PRIMARY KEY,
		source_id    TEXT NOT NULL,
		url          TEXT NOT NULL,
		title        TEXT NOT NULL,
		body         TEXT,
		content_hash TEXT NOT NULL,
		fetched_at   TEXT NOT NULL,
		is_processed INTEGER NOT NULL DEFAULT 0
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_raw_content_hash ON raw_articles(content_hash);
	CREATE INDEX IF NOT EXISTS idx_raw_unprocessed ON raw_articles(is_processed, fetched_at);

	CREATE TABLE IF NOT EXISTS clusters (
		id                   TEXT PRIMARY KEY,
		representative_title TEXT NOT NULL,
		created_at           TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS cluster_members (
		cluster_id     TEXT NOT NULL REFERENCES clusters(id),
		raw_article_id TEXT NOT NULL REFERENCES raw_articles(id),
		PRIMARY KEY (cluster_id, raw_article_id)
	);

	CREATE TABLE IF NOT EXISTS signals (
		id               TEXT PRIMARY KEY,
		cluster_id       TEXT,
		headline         TEXT NOT NULL,
		summary          TEXT,
		url              TEXT,
		source_name      TEXT,
		priority         TEXT NOT NULL,
		status           TEXT NOT NULL,
		confidence_score INTEGER,
		entities         TEXT NOT NULL DEFAULT '[]',
		topics           TEXT NOT NULL DEFAULT '[]',
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_signals_status ON signals(status, updated_at);

	CREATE TABLE IF NOT EXISTS articles (
		id           TEXT PRIMARY KEY,
		signal_id    TEXT,
		slug         TEXT NOT NULL,
		headline     TEXT NOT NULL,
		summary      TEXT,
		content      TEXT NOT NULL,
		is_draft     INTEGER NOT NULL DEFAULT 1,
		published_at TEXT,
		created_at   TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_articles_slug ON articles(slug);
	`
	_, err := s.db.Exec(schema)
	return err
}

// migrateV2 adds the cycle_logs table (v1 → v2).
func (s *Store) migrateV2() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS cycle_logs (
			id         TEXT PRIMARY KEY,
			cycle_id   TEXT NOT NULL,
			level      TEXT NOT NULL,
			message    TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_cycle_logs_cycle ON cycle_logs(cycle_id, created_at ASC);
		CREATE INDEX IF NOT EXISTS idx_cycle_logs_created ON cycle_logs(created_at);
	`)
	return err
}

// ---------------------------------------------------------------------------
// Sources
// ---------------------------------------------------------------------------

// UpsertSource inserts a source or updates its mutable fields.
func (s *Store) UpsertSource(ctx context.Context, src model.Source) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sources (id, name, url, kind, active, priority, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			url = excluded.url,
			kind = excluded.kind,
			active = excluded.active,
			priority = excluded.priority`,
		src.ID, src.Name, src.URL, src.Kind, src.Active, src.Priority, src.CreatedAt,
	)
	return err
}

// ListSources returns all sources, highest priority first.
func (s *Store) ListSources(ctx context.Context) ([]model.Source, error) {
	return s.querySources(ctx, `SELECT id, name, url, kind, active, priority, created_at FROM sources ORDER BY priority DESC, name ASC`)
}

// GetSource returns one source by id.
func (s *Store) GetSource(ctx context.Context, id string) (*model.Source, error) {
	sources, err := s.querySources(ctx, `SELECT id, name, url, kind, active, priority, created_at FROM sources WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, sql.ErrNoRows
	}
	return &sources[0], nil
}

// ListActiveSources returns enabled sources, highest priority first.
func (s *Store) ListActiveSources(ctx context.Context) ([]model.Source, error) {
	return s.querySources(ctx, `SELECT id, name, url, kind, active, priority, created_at FROM sources WHERE active = 1 ORDER BY priority DESC, name ASC`)
}

func (s *Store) querySources(ctx context.Context, query string, args ...interface{}) ([]model.Source, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sources []model.Source
	for rows.Next() {
		var src model.Source
		if err := rows.Scan(&src.ID, &src.Name, &src.URL, &src.Kind, &src.Active, &src.Priority, &src.CreatedAt); err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// ---------------------------------------------------------------------------
// Raw articles
// ---------------------------------------------------------------------------

// InsertRawArticle stores a fetched item. Returns ErrDuplicate if an item
// with the same content hash already exists.
func (s *Store) InsertRawArticle(ctx context.Context, raw model.RawArticle) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO raw_articles (id, source_id, url, title, body, content_hash, fetched_at, is_processed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		raw.ID, raw.SourceID, raw.URL, raw.Title, raw.Body, raw.ContentHash, raw.FetchedAt, raw.IsProcessed,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDuplicate
	}
	return nil
}

// ListUnprocessedRaw returns unclustered raw articles, oldest fetch first.
// Ties on fetched_at break by id so the ordering is deterministic.
func (s *Store) ListUnprocessedRaw(ctx context.Context, limit int) ([]model.RawArticle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_id, url, title, body, content_hash, fetched_at, is_processed
		FROM raw_articles WHERE is_processed = 0
		ORDER BY fetched_at ASC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRawArticles(rows)
}

func scanRawArticles(rows *sql.Rows) ([]model.RawArticle, error) {
	var items []model.RawArticle
	for rows.Next() {
		var raw model.RawArticle
		if err := rows.Scan(&raw.ID, &raw.SourceID, &raw.URL, &raw.Title, &raw.Body, &raw.ContentHash, &raw.FetchedAt, &raw.IsProcessed); err != nil {
			return nil, err
		}
		items = append(items, raw)
	}
	return items, rows.Err()
}

// ---------------------------------------------------------------------------
// Clusters
// ---------------------------------------------------------------------------

// CreateCluster inserts a cluster with its members and marks the member raw
// articles processed, all in one transaction. A raw article consumed here can
// never be clustered again.
func (s *Store) CreateCluster(ctx context.Context, c model.Cluster, memberIDs []string) error {
	if len(memberIDs) == 0 {
		return errors.New("cluster must have at least one member")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO clusters (id, representative_title, created_at) VALUES (?, ?, ?)`,
		c.ID, c.RepresentativeTitle, c.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert cluster: %w", err)
	}

	for _, rawID := range memberIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO cluster_members (cluster_id, raw_article_id) VALUES (?, ?)`,
			c.ID, rawID,
		); err != nil {
			return fmt.Errorf("insert member %s: %w", rawID, err)
		}
	}

	placeholders := make([]string, len(memberIDs))
	args := make([]interface{}, len(memberIDs))
	for i, id := range memberIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`UPDATE raw_articles SET is_processed = 1 WHERE id IN (%s)`, strings.Join(placeholders, ",")),
		args...,
	); err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}

	return tx.Commit()
}

// ListClustersWithoutSignals returns clusters no signal has been created for
// yet, oldest first. A crash between clustering and scoring leaves clusters
// here to be picked up by the next cycle.
func (s *Store) ListClustersWithoutSignals(ctx context.Context, limit int) ([]model.Cluster, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.representative_title, c.created_at
		FROM clusters c
		LEFT JOIN signals sig ON sig.cluster_id = c.id
		WHERE sig.id IS NULL
		ORDER BY c.created_at ASC, c.id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var clusters []model.Cluster
	for rows.Next() {
		var c model.Cluster
		if err := rows.Scan(&c.ID, &c.RepresentativeTitle, &c.CreatedAt); err != nil {
			return nil, err
		}
		clusters = append(clusters, c)
	}
	return clusters, rows.Err()
}

// ListClusterMembers returns the raw articles belonging to a cluster.
func (s *Store) ListClusterMembers(ctx context.Context, clusterID string) ([]model.RawArticle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.source_id, r.url, r.title, r.body, r.content_hash, r.fetched_at, r.is_processed
		FROM raw_articles r
		JOIN cluster_members m ON m.raw_article_id = r.id
		WHERE m.cluster_id = ?
		ORDER BY r.fetched_at ASC, r.id ASC`, clusterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRawArticles(rows)
}

// ---------------------------------------------------------------------------
// Signals
// ---------------------------------------------------------------------------

// CreateSignal inserts a new signal.
func (s *Store) CreateSignal(ctx context.Context, sig model.Signal) error {
	entities, err := json.Marshal(emptyIfNil(sig.Entities))
	if err != nil {
		return fmt.Errorf("marshal entities: %w", err)
	}
	topics, err := json.Marshal(emptyIfNil(sig.Topics))
	if err != nil {
		return fmt.Errorf("marshal topics: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO signals (id, cluster_id, headline, summary, url, source_name, priority, status, confidence_score, entities, topics, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sig.ID, sig.ClusterID, sig.Headline, sig.Summary, sig.URL, sig.SourceName,
		sig.Priority, sig.Status, sig.ConfidenceScore, string(entities), string(topics),
		sig.CreatedAt, sig.UpdatedAt,
	)
	return err
}

// GetSignal returns a single signal by id.
func (s *Store) GetSignal(ctx context.Context, id string) (*model.Signal, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+signalColumns+` FROM signals WHERE id = ?`, id)
	return scanSignal(row)
}

// ListSignals returns signals matching the given filter, most significant first.
func (s *Store) ListSignals(ctx context.Context, f model.SignalFilter) ([]model.Signal, error) {
	query := `SELECT ` + signalColumns + ` FROM signals`
	var conditions []string
	var args []interface{}

	if len(f.Status) > 0 {
		placeholders := make([]string, len(f.Status))
		for i, st := range f.Status {
			placeholders[i] = "?"
			args = append(args, st)
		}
		conditions = append(conditions, "status IN ("+strings.Join(placeholders, ",")+")")
	}
	if len(f.Priority) > 0 {
		placeholders := make([]string, len(f.Priority))
		for i, p := range f.Priority {
			placeholders[i] = "?"
			args = append(args, p)
		}
		conditions = append(conditions, "priority IN ("+strings.Join(placeholders, ",")+")")
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY COALESCE(confidence_score, -1) DESC, updated_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []model.Signal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		signals = append(signals, *sig)
	}
	return signals, rows.Err()
}

// UpdateSignalStatus transitions a signal from one status to another. The
// update only applies if the signal is currently in the expected status;
// otherwise ErrConflict is returned (or sql.ErrNoRows if the signal is gone).
func (s *Store) UpdateSignalStatus(ctx context.Context, id, from, to string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`UPDATE signals SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to, now, id, from,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var current string
		err := s.db.QueryRowContext(ctx, `SELECT status FROM signals WHERE id = ?`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return sql.ErrNoRows
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: signal %s is %s, expected %s", ErrConflict, id, current, from)
	}
	return nil
}

// ClaimApprovedSignal atomically moves an approved signal to processing and
// returns it. Returns nil (no error) if the signal was already claimed or
// moved; the caller just skips it.
func (s *Store) ClaimApprovedSignal(ctx context.Context, id string) (*model.Signal, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	row := s.db.QueryRowContext(ctx, `
		UPDATE signals SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
		RETURNING `+signalColumns,
		model.StatusProcessing, now, id, model.StatusApproved,
	)
	sig, err := scanSignal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return sig, err
}

// ReleaseSignal puts a processing signal back to approved after a failed
// synthesis attempt.
func (s *Store) ReleaseSignal(ctx context.Context, id string) error {
	return s.UpdateSignalStatus(ctx, id, model.StatusProcessing, model.StatusApproved)
}

// RescueStalled resets processing signals whose last update is older than the
// cutoff back to pending. Returns the number of rescued signals.
func (s *Store) RescueStalled(ctx context.Context, cutoff string) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`UPDATE signals SET status = ?, updated_at = ? WHERE status = ? AND updated_at < ?`,
		model.StatusPending, now, model.StatusProcessing, cutoff,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteSignal removes a signal and any articles derived from it.
func (s *Store) DeleteSignal(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM articles WHERE signal_id = ?`, id); err != nil {
		return fmt.Errorf("delete articles: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM signals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete signal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return tx.Commit()
}

// CountByStatus returns the number of signals in each lifecycle status.
func (s *Store) CountByStatus(ctx context.Context) (StatusCounts, error) {
	var counts StatusCounts
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM signals GROUP BY status`)
	if err != nil {
		return counts, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return counts, err
		}
		switch status {
		case model.StatusPending:
			counts.Pending = n
		case model.StatusProcessing:
			counts.Processing = n
		case model.StatusApproved:
			counts.Approved = n
		case model.StatusPublished:
			counts.Published = n
		case model.StatusArchived:
			counts.Archived = n
		case model.StatusRejected:
			counts.Rejected = n
		}
	}
	return counts, rows.Err()
}

// CountStalledProcessing returns how many processing signals have not been
// updated since the cutoff.
func (s *Store) CountStalledProcessing(ctx context.Context, cutoff string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM signals WHERE status = ? AND updated_at < ?`,
		model.StatusProcessing, cutoff,
	).Scan(&n)
	return n, err
}

// ---------------------------------------------------------------------------
// Articles
// ---------------------------------------------------------------------------

// CreateArticle inserts a new draft article. Returns ErrDuplicate if the slug
// is already taken.
func (s *Store) CreateArticle(ctx context.Context, a model.Article) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO articles (id, signal_id, slug, headline, summary, content, is_draft, published_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.SignalID, a.Slug, a.Headline, a.Summary, a.Content, a.IsDraft, a.PublishedAt, a.CreatedAt,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDuplicate
	}
	return nil
}

// GetArticle returns a single article by id.
func (s *Store) GetArticle(ctx context.Context, id string) (*model.Article, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles WHERE id = ?`, id)
	return scanArticle(row)
}

// GetArticleBySignal returns the article derived from a signal, or
// sql.ErrNoRows if none has been synthesized yet.
func (s *Store) GetArticleBySignal(ctx context.Context, signalID string) (*model.Article, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles WHERE signal_id = ? ORDER BY created_at DESC LIMIT 1`, signalID)
	return scanArticle(row)
}

// GetArticleBySlug returns a single article by slug.
func (s *Store) GetArticleBySlug(ctx context.Context, slug string) (*model.Article, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles WHERE slug = ?`, slug)
	return scanArticle(row)
}

// ListArticles returns articles, newest first. Drafts are excluded unless
// includeDrafts is set.
func (s *Store) ListArticles(ctx context.Context, includeDrafts bool) ([]model.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles`
	if !includeDrafts {
		query += ` WHERE is_draft = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []model.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, *a)
	}
	return articles, rows.Err()
}

// PublishArticle flips a draft article live and moves its signal to published,
// in one transaction. Returns ErrConflict if the article is already published,
// sql.ErrNoRows if it does not exist.
func (s *Store) PublishArticle(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var signalID sql.NullString
	var isDraft bool
	err = tx.QueryRowContext(ctx, `SELECT signal_id, is_draft FROM articles WHERE id = ?`, id).Scan(&signalID, &isDraft)
	if errors.Is(err, sql.ErrNoRows) {
		return sql.ErrNoRows
	}
	if err != nil {
		return fmt.Errorf("read article: %w", err)
	}
	if !isDraft {
		return fmt.Errorf("%w: article %s is already published", ErrConflict, id)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE articles SET is_draft = 0, published_at = ? WHERE id = ?`,
		now, id,
	); err != nil {
		return fmt.Errorf("publish article: %w", err)
	}

	if signalID.Valid {
		// The signal may sit in processing (auto-publish path) or approved
		// (manual publish of a released draft); both end at published.
		if _, err := tx.ExecContext(ctx,
			`UPDATE signals SET status = ?, updated_at = ? WHERE id = ? AND status IN (?, ?)`,
			model.StatusPublished, now, signalID.String, model.StatusProcessing, model.StatusApproved,
		); err != nil {
			return fmt.Errorf("publish signal: %w", err)
		}
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Cycle logs
// ---------------------------------------------------------------------------

// InsertCycleLog appends one audit entry.
func (s *Store) InsertCycleLog(ctx context.Context, entry model.CycleLog) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cycle_logs (id, cycle_id, level, message, created_at) VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.CycleID, entry.Level, entry.Message, entry.CreatedAt,
	)
	return err
}

// ListCycleLogs returns all entries for a cycle in insertion order.
func (s *Store) ListCycleLogs(ctx context.Context, cycleID string) ([]model.CycleLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, cycle_id, level, message, created_at FROM cycle_logs WHERE cycle_id = ? ORDER BY created_at ASC, id ASC`,
		cycleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []model.CycleLog
	for rows.Next() {
		var e model.CycleLog
		if err := rows.Scan(&e.ID, &e.CycleID, &e.Level, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PruneCycleLogs deletes entries created before the given timestamp.
func (s *Store) PruneCycleLogs(ctx context.Context, before string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cycle_logs WHERE created_at < ?`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

const signalColumns = `id, cluster_id, headline, summary, url, source_name, priority, status, confidence_score, entities, topics, created_at, updated_at`

const articleColumns = `id, signal_id, slug, headline, summary, content, is_draft, published_at, created_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSignal(row scanner) (*model.Signal, error) {
	var sig model.Signal
	var entities, topics string
	err := row.Scan(&sig.ID, &sig.ClusterID, &sig.Headline, &sig.Summary, &sig.URL, &sig.SourceName,
		&sig.Priority, &sig.Status, &sig.ConfidenceScore, &entities, &topics, &sig.CreatedAt, &sig.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(entities), &sig.Entities); err != nil {
		return nil, fmt.Errorf("unmarshal entities: %w", err)
	}
	if err := json.Unmarshal([]byte(topics), &sig.Topics); err != nil {
		return nil, fmt.Errorf("unmarshal topics: %w", err)
	}
	return &sig, nil
}

func scanArticle(row scanner) (*model.Article, error) {
	var a model.Article
	err := row.Scan(&a.ID, &a.SignalID, &a.Slug, &a.Headline, &a.Summary, &a.Content, &a.IsDraft, &a.PublishedAt, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func emptyIfNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
