// File path: internal/catalog/store.go
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a catalog entry does not exist.
var ErrNotFound = errors.New("catalog entry not found")

// Store wraps a pooled sqlx.DB connection to the SQLite catalog.
type Store struct {
	db *sqlx.DB
}

// Open constructs a Store backed by the SQLite database at the provided path.
// The schema is migrated on first use.
func Open(path string) (*Store, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		cfg.Path = trimmed
	}
	return OpenWithConfig(cfg)
}

// OpenWithConfig constructs a Store using the provided configuration.
func OpenWithConfig(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("catalog path required")
	}
	abs, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve catalog path: %w", err)
	}
	busy := int(cfg.BusyTimeout / time.Millisecond)
	if busy <= 0 {
		busy = 5000
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", abs, busy)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingTimeout := cfg.BusyTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping catalog db: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the underlying database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS entries (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	url TEXT NOT NULL,
	content_type TEXT NOT NULL DEFAULT 'post',
	topic_cluster TEXT NOT NULL DEFAULT '',
	related_clusters TEXT NOT NULL DEFAULT '',
	topic_tags TEXT NOT NULL DEFAULT '',
	keywords TEXT NOT NULL DEFAULT '',
	funnel_stage TEXT NOT NULL DEFAULT 'awareness',
	target_persona TEXT NOT NULL DEFAULT '',
	difficulty_level INTEGER NOT NULL DEFAULT 1,
	quality_score INTEGER NOT NULL DEFAULT 0,
	content_lifespan TEXT NOT NULL DEFAULT 'evergreen',
	freshness_score INTEGER NOT NULL DEFAULT 0,
	monetization_value INTEGER NOT NULL DEFAULT 0,
	has_cta INTEGER NOT NULL DEFAULT 0,
	has_calculator INTEGER NOT NULL DEFAULT 0,
	has_lead_form INTEGER NOT NULL DEFAULT 0,
	is_pillar INTEGER NOT NULL DEFAULT 0,
	inbound_link_count INTEGER NOT NULL DEFAULT 0,
	link_gap_priority INTEGER NOT NULL DEFAULT 0,
	published_at TIMESTAMP,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entries_cluster ON entries(topic_cluster);
CREATE INDEX IF NOT EXISTS idx_entries_type ON entries(content_type);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate catalog schema: %w", err)
	}
	return nil
}

type entryRow struct {
	Entry
	RelatedClusters string       `db:"related_clusters"`
	TopicTags       string       `db:"topic_tags"`
	Keywords        string       `db:"keywords"`
	PublishedAt     sql.NullTime `db:"published_at"`
}

func (r entryRow) toEntry() Entry {
	entry := r.Entry
	entry.RelatedClusters = splitList(r.RelatedClusters)
	entry.TopicTags = splitList(r.TopicTags)
	entry.Keywords = splitList(r.Keywords)
	if r.PublishedAt.Valid {
		entry.PublishedAt = r.PublishedAt.Time
	}
	entry.Normalize()
	return entry
}

// Upsert inserts or replaces a catalog entry.
func (s *Store) Upsert(ctx context.Context, entry Entry) error {
	if s == nil || s.db == nil {
		return errors.New("catalog store not initialised")
	}
	entry.Normalize()
	if entry.ID == "" {
		return errors.New("entry id required")
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now().UTC()
	}
	var published interface{}
	if !entry.PublishedAt.IsZero() {
		published = entry.PublishedAt.UTC()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO entries (
	id, title, url, content_type, topic_cluster, related_clusters, topic_tags,
	keywords, funnel_stage, target_persona, difficulty_level, quality_score,
	content_lifespan, freshness_score, monetization_value, has_cta,
	has_calculator, has_lead_form, is_pillar, inbound_link_count,
	link_gap_priority, published_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	title = excluded.title,
	url = excluded.url,
	content_type = excluded.content_type,
	topic_cluster = excluded.topic_cluster,
	related_clusters = excluded.related_clusters,
	topic_tags = excluded.topic_tags,
	keywords = excluded.keywords,
	funnel_stage = excluded.funnel_stage,
	target_persona = excluded.target_persona,
	difficulty_level = excluded.difficulty_level,
	quality_score = excluded.quality_score,
	content_lifespan = excluded.content_lifespan,
	freshness_score = excluded.freshness_score,
	monetization_value = excluded.monetization_value,
	has_cta = excluded.has_cta,
	has_calculator = excluded.has_calculator,
	has_lead_form = excluded.has_lead_form,
	is_pillar = excluded.is_pillar,
	inbound_link_count = excluded.inbound_link_count,
	link_gap_priority = excluded.link_gap_priority,
	published_at = excluded.published_at,
	updated_at = excluded.updated_at`,
		entry.ID, entry.Title, entry.URL, entry.ContentType, entry.TopicCluster,
		strings.Join(entry.RelatedClusters, ","), strings.Join(entry.TopicTags, ","),
		strings.Join(entry.Keywords, ","), entry.FunnelStage, entry.TargetPersona,
		entry.DifficultyLevel, entry.QualityScore, entry.ContentLifespan,
		entry.FreshnessScore, entry.MonetizationValue, entry.HasCTA,
		entry.HasCalculator, entry.HasLeadForm, entry.IsPillar,
		entry.InboundLinkCount, entry.LinkGapPriority, published,
		entry.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("upsert entry %s: %w", entry.ID, err)
	}
	return nil
}

// Get retrieves one entry by id.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	if s == nil || s.db == nil {
		return Entry{}, errors.New("catalog store not initialised")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Entry{}, errors.New("entry id required")
	}
	var row entryRow
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM entries WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, fmt.Errorf("select entry %s: %w", id, err)
	}
	return row.toEntry(), nil
}

// List returns all entries ordered by id, optionally filtered by topic cluster.
func (s *Store) List(ctx context.Context, cluster string) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("catalog store not initialised")
	}
	rows := []entryRow{}
	cluster = strings.ToLower(strings.TrimSpace(cluster))
	var err error
	if cluster == "" {
		err = s.db.SelectContext(ctx, &rows, `SELECT * FROM entries ORDER BY id`)
	} else {
		err = s.db.SelectContext(ctx, &rows, `SELECT * FROM entries WHERE topic_cluster = ? ORDER BY id`, cluster)
	}
	if err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.toEntry())
	}
	return entries, nil
}

// Delete removes an entry by id. Deleting a missing entry is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return errors.New("catalog store not initialised")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("entry id required")
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete entry %s: %w", id, err)
	}
	return nil
}
