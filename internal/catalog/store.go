package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/jackc/pgx/v5"

	"syndicate/internal/db"
)

// Store serves catalog reads through a bounded LRU cache. Entries expire
// after ttl so admin edits made outside this process show up eventually.
type Store struct {
	db    db.Querier
	cache *lru.Cache
	ttl   time.Duration
	now   func() time.Time
}

type cachedEntry struct {
	value    any
	loadedAt time.Time
}

func NewStore(q db.Querier, cacheSize int, ttl time.Duration) (*Store, error) {
	if cacheSize <= 0 {
		cacheSize = 512
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("catalog cache: %w", err)
	}
	return &Store{db: q, cache: cache, ttl: ttl, now: time.Now}, nil
}

const resourceSelect = `
	SELECT r.id, r.name, t.name,
		COALESCE(
			jsonb_object_agg(a.name, v.value) FILTER (WHERE a.name IS NOT NULL),
			'{}'::jsonb
		)
	FROM resources r
	JOIN resource_types t ON t.id = r.resource_type_id
	LEFT JOIN resource_attribute_values v ON v.resource_id = r.id
	LEFT JOIN resource_attributes a ON a.id = v.attribute_id
`

// Get loads one resource. When types is non-empty the resource must belong
// to one of them, otherwise ErrNotFound is returned.
func (s *Store) Get(ctx context.Context, id int64, types ...string) (Resource, error) {
	key := "resource:" + strconv.FormatInt(id, 10)
	if v, ok := s.cached(key); ok {
		r := v.(Resource)
		if len(types) > 0 && !slices.Contains(types, r.Type) {
			return Resource{}, ErrNotFound
		}
		return r, nil
	}

	rows, err := s.db.Query(ctx, resourceSelect+`
		WHERE r.id = $1
		GROUP BY r.id, r.name, t.name
	`, id)
	if err != nil {
		return Resource{}, fmt.Errorf("query resource %d: %w", id, err)
	}
	list, err := scanResources(rows)
	if err != nil {
		return Resource{}, err
	}
	if len(list) == 0 {
		return Resource{}, ErrNotFound
	}
	r := list[0]
	s.store(key, r)
	if len(types) > 0 && !slices.Contains(types, r.Type) {
		return Resource{}, ErrNotFound
	}
	return r, nil
}

// ListTypes returns every resource whose type is in types, ordered by type
// then name.
func (s *Store) ListTypes(ctx context.Context, types []string) ([]Resource, error) {
	key := "types:" + strings.Join(types, ",")
	if v, ok := s.cached(key); ok {
		return slices.Clone(v.([]Resource)), nil
	}
	rows, err := s.db.Query(ctx, resourceSelect+`
		WHERE t.name = ANY($1)
		GROUP BY r.id, r.name, t.name
		ORDER BY t.name, r.name
	`, types)
	if err != nil {
		return nil, fmt.Errorf("query resources by type: %w", err)
	}
	list, err := scanResources(rows)
	if err != nil {
		return nil, err
	}
	s.store(key, list)
	return slices.Clone(list), nil
}

// ListSet returns the members of a resource set restricted to types.
func (s *Store) ListSet(ctx context.Context, setID int64, types []string) ([]Resource, error) {
	key := "set:" + strconv.FormatInt(setID, 10) + ":" + strings.Join(types, ",")
	if v, ok := s.cached(key); ok {
		return slices.Clone(v.([]Resource)), nil
	}
	rows, err := s.db.Query(ctx, resourceSelect+`
		JOIN resource_set_members m ON m.resource_id = r.id
		WHERE m.resource_set_id = $1 AND t.name = ANY($2)
		GROUP BY r.id, r.name, t.name
		ORDER BY t.name, r.name
	`, setID, types)
	if err != nil {
		return nil, fmt.Errorf("query resource set %d: %w", setID, err)
	}
	list, err := scanResources(rows)
	if err != nil {
		return nil, err
	}
	s.store(key, list)
	return slices.Clone(list), nil
}

// Invalidate drops every cached entry.
func (s *Store) Invalidate() {
	s.cache.Purge()
}

func (s *Store) cached(key string) (any, bool) {
	v, ok := s.cache.Get(key)
	if !ok {
		return nil, false
	}
	entry := v.(cachedEntry)
	if s.ttl > 0 && s.now().Sub(entry.loadedAt) > s.ttl {
		s.cache.Remove(key)
		return nil, false
	}
	return entry.value, true
}

func (s *Store) store(key string, v any) {
	s.cache.Add(key, cachedEntry{value: v, loadedAt: s.now()})
}

func scanResources(rows pgx.Rows) ([]Resource, error) {
	defer rows.Close()
	out := make([]Resource, 0, 16)
	for rows.Next() {
		var (
			r   Resource
			raw map[string]string
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Type, &raw); err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		attrs, err := ParseAttributes(raw)
		if err != nil {
			return nil, fmt.Errorf("resource %d: %w", r.ID, err)
		}
		r.Attributes = attrs
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return out, nil
		}
		return nil, err
	}
	return out, nil
}
