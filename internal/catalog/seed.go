package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Seed describes catalog content loaded at startup. Seeding is additive:
// existing rows keep their ids and attributes are overwritten.
type Seed struct {
	Locations []string       `toml:"locations" yaml:"locations"`
	Resources []ResourceSeed `toml:"resources" yaml:"resources"`
	Sets      []SetSeed      `toml:"sets" yaml:"sets"`
}

type ResourceSeed struct {
	Name       string `toml:"name" yaml:"name"`
	Type       string `toml:"type" yaml:"type"`
	Value      string `toml:"value" yaml:"value"`
	RecruitMin string `toml:"recruitmin" yaml:"recruitmin"`
	RecruitMax string `toml:"recruitmax" yaml:"recruitmax"`
}

type SetSeed struct {
	Name      string   `toml:"name" yaml:"name"`
	Resources []string `toml:"resources" yaml:"resources"`
}

// LoadSeed reads a seed file. The format follows the extension: .toml, or
// .yaml/.yml.
func LoadSeed(path string) (Seed, error) {
	var seed Seed
	raw, err := os.ReadFile(path)
	if err != nil {
		return seed, fmt.Errorf("read seed: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(raw, &seed)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &seed)
	default:
		return seed, fmt.Errorf("unsupported seed format %q", filepath.Ext(path))
	}
	if err != nil {
		return seed, fmt.Errorf("decode seed %s: %w", path, err)
	}
	if err := seed.Validate(); err != nil {
		return seed, err
	}
	return seed, nil
}

func (s Seed) Validate() error {
	names := make(map[string]struct{}, len(s.Resources))
	for _, r := range s.Resources {
		if strings.TrimSpace(r.Name) == "" {
			return fmt.Errorf("seed resource with empty name")
		}
		if _, ok := NormalizeType(r.Type); !ok {
			return fmt.Errorf("seed resource %q has unknown type %q", r.Name, r.Type)
		}
		if _, err := ParseAttributes(r.attributes()); err != nil {
			return fmt.Errorf("seed resource %q: %w", r.Name, err)
		}
		names[r.Name] = struct{}{}
	}
	for _, set := range s.Sets {
		for _, member := range set.Resources {
			if _, ok := names[member]; !ok {
				return fmt.Errorf("seed set %q references unknown resource %q", set.Name, member)
			}
		}
	}
	return nil
}

func (r ResourceSeed) attributes() map[string]string {
	out := map[string]string{}
	if r.Value != "" {
		out[AttrValue] = r.Value
	}
	if r.RecruitMin != "" {
		out[AttrRecruitMin] = r.RecruitMin
	}
	if r.RecruitMax != "" {
		out[AttrRecruitMax] = r.RecruitMax
	}
	return out
}

// Apply writes the seed in one transaction.
func (s *Store) Apply(ctx context.Context, beginner interface {
	Begin(context.Context) (pgx.Tx, error)
}, seed Seed) error {
	if err := seed.Validate(); err != nil {
		return err
	}
	tx, err := beginner.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, name := range seed.Locations {
		if _, err := tx.Exec(ctx, `INSERT INTO locations (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name); err != nil {
			return fmt.Errorf("seed location %q: %w", name, err)
		}
	}

	for _, r := range seed.Resources {
		typ, _ := NormalizeType(r.Type)
		var typeID, resourceID int64
		if err := tx.QueryRow(ctx, `
			INSERT INTO resource_types (name) VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		`, typ).Scan(&typeID); err != nil {
			return fmt.Errorf("seed type %q: %w", typ, err)
		}
		if err := tx.QueryRow(ctx, `
			INSERT INTO resources (resource_type_id, name) VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE SET resource_type_id = EXCLUDED.resource_type_id
			RETURNING id
		`, typeID, r.Name).Scan(&resourceID); err != nil {
			return fmt.Errorf("seed resource %q: %w", r.Name, err)
		}
		for attr, value := range r.attributes() {
			if _, err := tx.Exec(ctx, `
				WITH a AS (
					INSERT INTO resource_attributes (name) VALUES ($2)
					ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
					RETURNING id
				)
				INSERT INTO resource_attribute_values (resource_id, attribute_id, value)
				SELECT $1, a.id, $3 FROM a
				ON CONFLICT (resource_id, attribute_id) DO UPDATE SET value = EXCLUDED.value
			`, resourceID, attr, value); err != nil {
				return fmt.Errorf("seed attribute %s for %q: %w", attr, r.Name, err)
			}
		}
	}

	for _, set := range seed.Sets {
		var setID int64
		if err := tx.QueryRow(ctx, `
			INSERT INTO resource_sets (name) VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		`, set.Name).Scan(&setID); err != nil {
			return fmt.Errorf("seed set %q: %w", set.Name, err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO resource_set_members (resource_set_id, resource_id)
			SELECT $1, id FROM resources WHERE name = ANY($2)
			ON CONFLICT DO NOTHING
		`, setID, set.Resources); err != nil {
			return fmt.Errorf("seed set members %q: %w", set.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	s.Invalidate()
	return nil
}

// DefaultSeed is the catalog a fresh deployment starts with.
func DefaultSeed() Seed {
	resources := []ResourceSeed{
		{Name: "Burner Phone", Type: TypeItems, Value: "40"},
		{Name: "Forged Papers", Type: TypeItems, Value: "250"},
		{Name: "Lockpick Set", Type: TypeItems, Value: "75"},
		{Name: "Cargo Van", Type: TypeTransports, Value: "4200"},
		{Name: "Speedboat", Type: TypeTransports, Value: "18500"},
		{Name: "Sedan", Type: TypeVehicles, Value: "9000"},
		{Name: "Armored SUV", Type: TypeVehicles, Value: "65000"},
		{Name: "Pistol", Type: TypeWeapons, Value: "600"},
		{Name: "Shotgun", Type: TypeWeapons, Value: "1400"},
		{Name: "Lookout", Type: TypeAssociates, Value: "100", RecruitMin: "1", RecruitMax: "3"},
		{Name: "Fixer", Type: TypeAssociates, Value: "450", RecruitMin: "0.2", RecruitMax: "0.6"},
		{Name: "Muscle", Type: TypeEnforcers, Value: "300", RecruitMin: "0.5", RecruitMax: "1.5"},
		{Name: "Hitman", Type: TypeEnforcers, Value: "2500", RecruitMin: "0.05", RecruitMax: "0.2"},
	}
	members := make([]string, 0, len(resources))
	for _, r := range resources {
		if IsMarketType(r.Type) {
			members = append(members, r.Name)
		}
	}
	return Seed{
		Locations: []string{"Docks", "Downtown", "Old Town", "Riverside"},
		Resources: resources,
		Sets:      []SetSeed{{Name: "standard", Resources: members}},
	}
}
