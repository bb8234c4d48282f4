package community

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/google/uuid"
)

// PostgresCommunityStore persists communities and memberships in
// Postgres. It owns its own schema and creates it on connect, the same
// way the platform's other Postgres-backed stores bootstrap themselves
// without a separate migration step.
type PostgresCommunityStore struct {
	db *sql.DB
}

// NewPostgresCommunityStore opens a connection using dsn if non-empty,
// else COMMUNITY_DATABASE_URL, else DATABASE_URL, and ensures the
// community/membership tables exist.
func NewPostgresCommunityStore(dsn string) (*PostgresCommunityStore, error) {
	if dsn == "" {
		dsn = getenvString("COMMUNITY_DATABASE_URL", "")
	}
	if dsn == "" {
		dsn = getenvString("DATABASE_URL", "")
	}
	if dsn == "" {
		return nil, fmt.Errorf("community: DATABASE_URL or COMMUNITY_DATABASE_URL required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("community: open db: %w", err)
	}
	store := &PostgresCommunityStore{db: db}
	if err := store.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgresCommunityStoreWithDB wraps an already-open *sql.DB, for
// callers (and tests) that manage the connection pool themselves.
func NewPostgresCommunityStoreWithDB(db *sql.DB) (*PostgresCommunityStore, error) {
	store := &PostgresCommunityStore{db: db}
	if err := store.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *PostgresCommunityStore) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS communities (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			level INT NOT NULL,
			parent_id TEXT NOT NULL DEFAULT '',
			label TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			size INT NOT NULL DEFAULT 0,
			modularity DOUBLE PRECISION NOT NULL DEFAULT 0,
			properties JSONB,
			keywords JSONB,
			centroid JSONB,
			first_seen TIMESTAMPTZ,
			last_seen TIMESTAMPTZ,
			last_activity TIMESTAMPTZ,
			activity_count INT NOT NULL DEFAULT 0,
			stability DOUBLE PRECISION NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS communities_tenant_idx ON communities (tenant_id)`,
		`CREATE INDEX IF NOT EXISTS communities_parent_idx ON communities (parent_id)`,
		`CREATE TABLE IF NOT EXISTS community_members (
			community_id TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			centrality DOUBLE PRECISION NOT NULL DEFAULT 0,
			joined_at TIMESTAMPTZ NOT NULL,
			left_at TIMESTAMPTZ,
			contribution DOUBLE PRECISION NOT NULL DEFAULT 0,
			PRIMARY KEY (community_id, entity_id)
		)`,
		`CREATE INDEX IF NOT EXISTS community_members_entity_idx ON community_members (entity_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("community: ensure schema: %w", err)
		}
	}
	return nil
}

// UpsertCommunity implements CommunityStore.
func (s *PostgresCommunityStore) UpsertCommunity(ctx context.Context, c Community) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	properties, err := json.Marshal(c.Properties)
	if err != nil {
		return fmt.Errorf("community: marshal properties: %w", err)
	}
	keywords, err := json.Marshal(c.Keywords)
	if err != nil {
		return fmt.Errorf("community: marshal keywords: %w", err)
	}
	centroid, err := json.Marshal(c.Centroid)
	if err != nil {
		return fmt.Errorf("community: marshal centroid: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO communities (
			id, tenant_id, level, parent_id, label, description, size, modularity,
			properties, keywords, centroid, first_seen, last_seen, last_activity,
			activity_count, stability
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (id) DO UPDATE SET
			tenant_id = EXCLUDED.tenant_id,
			level = EXCLUDED.level,
			parent_id = EXCLUDED.parent_id,
			label = EXCLUDED.label,
			description = EXCLUDED.description,
			size = EXCLUDED.size,
			modularity = EXCLUDED.modularity,
			properties = EXCLUDED.properties,
			keywords = EXCLUDED.keywords,
			centroid = EXCLUDED.centroid,
			last_seen = EXCLUDED.last_seen,
			last_activity = EXCLUDED.last_activity,
			activity_count = EXCLUDED.activity_count,
			stability = EXCLUDED.stability
	`, c.ID, c.TenantID, int(c.Level), c.ParentID, c.Label, c.Description, c.Size, c.Modularity,
		properties, keywords, centroid,
		c.Temporal.FirstSeen, c.Temporal.LastSeen, c.Temporal.LastActivity,
		c.Temporal.ActivityCount, c.Temporal.Stability)
	if err != nil {
		return fmt.Errorf("community: upsert community: %w", err)
	}
	return nil
}

// UpsertMembership implements CommunityStore.
func (s *PostgresCommunityStore) UpsertMembership(ctx context.Context, m CommunityMember) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO community_members (community_id, entity_id, centrality, joined_at, left_at, contribution)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (community_id, entity_id) DO UPDATE SET
			centrality = EXCLUDED.centrality,
			left_at = EXCLUDED.left_at,
			contribution = EXCLUDED.contribution
	`, m.CommunityID, m.EntityID, m.Centrality, m.JoinedAt, m.LeftAt, m.Contribution)
	if err != nil {
		return fmt.Errorf("community: upsert membership: %w", err)
	}
	return nil
}

// GetCommunity implements CommunityStore.
func (s *PostgresCommunityStore) GetCommunity(ctx context.Context, id string) (*Community, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, level, parent_id, label, description, size, modularity,
			properties, keywords, centroid, first_seen, last_seen, last_activity,
			activity_count, stability
		FROM communities WHERE id = $1
	`, id)
	c, err := scanCommunity(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("community: get community: %w", err)
	}
	return c, nil
}

// ListCommunities implements CommunityStore.
func (s *PostgresCommunityStore) ListCommunities(ctx context.Context, filter CommunityFilter) ([]Community, error) {
	query := `
		SELECT id, tenant_id, level, parent_id, label, description, size, modularity,
			properties, keywords, centroid, first_seen, last_seen, last_activity,
			activity_count, stability
		FROM communities WHERE tenant_id = $1
	`
	args := []interface{}{filter.TenantID}

	if filter.Level != nil {
		args = append(args, int(*filter.Level))
		query += fmt.Sprintf(" AND level = $%d", len(args))
	}
	if filter.ParentID != nil {
		args = append(args, *filter.ParentID)
		query += fmt.Sprintf(" AND parent_id = $%d", len(args))
	}
	if filter.MinSize > 0 {
		args = append(args, filter.MinSize)
		query += fmt.Sprintf(" AND size >= $%d", len(args))
	}
	if filter.MaxSize > 0 {
		args = append(args, filter.MaxSize)
		query += fmt.Sprintf(" AND size <= $%d", len(args))
	}
	if filter.ActiveAfter != nil {
		args = append(args, *filter.ActiveAfter)
		query += fmt.Sprintf(" AND last_activity >= $%d", len(args))
	}
	query += " ORDER BY id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("community: list communities: %w", err)
	}
	defer rows.Close()

	var out []Community
	for rows.Next() {
		c, err := scanCommunity(rows)
		if err != nil {
			return nil, fmt.Errorf("community: scan community: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// GetCommunityMembers implements CommunityStore.
func (s *PostgresCommunityStore) GetCommunityMembers(ctx context.Context, communityID string) ([]CommunityMember, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT community_id, entity_id, centrality, joined_at, left_at, contribution
		FROM community_members WHERE community_id = $1
	`, communityID)
	if err != nil {
		return nil, fmt.Errorf("community: get members: %w", err)
	}
	defer rows.Close()

	var out []CommunityMember
	for rows.Next() {
		var m CommunityMember
		var leftAt sql.NullTime
		if err := rows.Scan(&m.CommunityID, &m.EntityID, &m.Centrality, &m.JoinedAt, &leftAt, &m.Contribution); err != nil {
			return nil, fmt.Errorf("community: scan member: %w", err)
		}
		if leftAt.Valid {
			t := leftAt.Time
			m.LeftAt = &t
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetEntityCommunities implements CommunityStore.
func (s *PostgresCommunityStore) GetEntityCommunities(ctx context.Context, entityID string) ([]Community, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.tenant_id, c.level, c.parent_id, c.label, c.description, c.size, c.modularity,
			c.properties, c.keywords, c.centroid, c.first_seen, c.last_seen, c.last_activity,
			c.activity_count, c.stability
		FROM communities c
		JOIN community_members m ON m.community_id = c.id
		WHERE m.entity_id = $1
	`, entityID)
	if err != nil {
		return nil, fmt.Errorf("community: get entity communities: %w", err)
	}
	defer rows.Close()

	var out []Community
	for rows.Next() {
		c, err := scanCommunity(rows)
		if err != nil {
			return nil, fmt.Errorf("community: scan community: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// GetHierarchy implements CommunityStore, building the tree below rootID
// by repeated parent_id lookups. Fine for the shallow (3-4 level)
// hierarchies this engine produces; not meant for arbitrarily deep trees.
func (s *PostgresCommunityStore) GetHierarchy(ctx context.Context, rootID string) (*CommunityHierarchy, error) {
	root, err := s.GetCommunity(ctx, rootID)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, fmt.Errorf("community: root not found: %s", rootID)
	}
	return s.buildHierarchy(ctx, *root)
}

func (s *PostgresCommunityStore) buildHierarchy(ctx context.Context, root Community) (*CommunityHierarchy, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, level, parent_id, label, description, size, modularity,
			properties, keywords, centroid, first_seen, last_seen, last_activity,
			activity_count, stability
		FROM communities WHERE parent_id = $1 ORDER BY id
	`, root.ID)
	if err != nil {
		return nil, fmt.Errorf("community: list children: %w", err)
	}
	defer rows.Close()

	var children []Community
	for rows.Next() {
		c, err := scanCommunity(rows)
		if err != nil {
			return nil, fmt.Errorf("community: scan child: %w", err)
		}
		children = append(children, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	h := &CommunityHierarchy{Root: root}
	for _, child := range children {
		childTree, err := s.buildHierarchy(ctx, child)
		if err != nil {
			return nil, err
		}
		h.Children = append(h.Children, *childTree)
	}
	return h, nil
}

// ExpireMemberships implements CommunityStore.
func (s *PostgresCommunityStore) ExpireMemberships(ctx context.Context, communityID string, exceptEntityIDs []string, at time.Time) error {
	query := `UPDATE community_members SET left_at = $1 WHERE community_id = $2 AND left_at IS NULL`
	args := []interface{}{at, communityID}
	if len(exceptEntityIDs) > 0 {
		placeholders := ""
		for i, id := range exceptEntityIDs {
			if i > 0 {
				placeholders += ","
			}
			args = append(args, id)
			placeholders += fmt.Sprintf("$%d", len(args))
		}
		query += fmt.Sprintf(" AND entity_id NOT IN (%s)", placeholders)
	}
	_, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("community: expire memberships: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *PostgresCommunityStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCommunity(row rowScanner) (*Community, error) {
	var c Community
	var level int
	var properties, keywords, centroid []byte
	var firstSeen, lastSeen, lastActivity sql.NullTime

	if err := row.Scan(&c.ID, &c.TenantID, &level, &c.ParentID, &c.Label, &c.Description, &c.Size, &c.Modularity,
		&properties, &keywords, &centroid, &firstSeen, &lastSeen, &lastActivity,
		&c.Temporal.ActivityCount, &c.Temporal.Stability); err != nil {
		return nil, err
	}
	c.Level = CommunityLevel(level)
	if firstSeen.Valid {
		c.Temporal.FirstSeen = firstSeen.Time
	}
	if lastSeen.Valid {
		c.Temporal.LastSeen = lastSeen.Time
	}
	if lastActivity.Valid {
		c.Temporal.LastActivity = lastActivity.Time
	}
	if len(properties) > 0 {
		if err := json.Unmarshal(properties, &c.Properties); err != nil {
			return nil, fmt.Errorf("unmarshal properties: %w", err)
		}
	}
	if len(keywords) > 0 {
		if err := json.Unmarshal(keywords, &c.Keywords); err != nil {
			return nil, fmt.Errorf("unmarshal keywords: %w", err)
		}
	}
	if len(centroid) > 0 {
		if err := json.Unmarshal(centroid, &c.Centroid); err != nil {
			return nil, fmt.Errorf("unmarshal centroid: %w", err)
		}
	}
	return &c, nil
}

var _ CommunityStore = (*PostgresCommunityStore)(nil)
