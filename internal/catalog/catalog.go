// Package catalog reads the global resource catalog: resource types, the
// resources within them, and the free-form attributes that drive pricing and
// recruitment.
package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	TypeItems      = "Items"
	TypeTransports = "Transports"
	TypeVehicles   = "Vehicles"
	TypeWeapons    = "Weapons"
	TypeAssociates = "Associates"
	TypeEnforcers  = "Enforcers"
)

const (
	AttrValue      = "value"
	AttrRecruitMin = "recruitmin"
	AttrRecruitMax = "recruitmax"
)

var (
	MarketTypes    = []string{TypeItems, TypeTransports, TypeVehicles, TypeWeapons}
	PersonnelTypes = []string{TypeAssociates, TypeEnforcers}
)

var (
	ErrNotFound         = errors.New("resource not found")
	ErrInvalidAttribute = errors.New("invalid resource attribute")
)

type Resource struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	Attributes Attributes `json:"attributes"`
}

// Attributes is the typed view over a resource's attribute rows. Missing
// attributes take their defaults: value 0, recruitmin 1, recruitmax 1.
type Attributes struct {
	Value      decimal.Decimal `json:"value"`
	RecruitMin decimal.Decimal `json:"recruitmin"`
	RecruitMax decimal.Decimal `json:"recruitmax"`
}

func DefaultAttributes() Attributes {
	return Attributes{
		Value:      decimal.Zero,
		RecruitMin: decimal.NewFromInt(1),
		RecruitMax: decimal.NewFromInt(1),
	}
}

// ParseAttributes converts raw attribute rows keyed by attribute name.
// Unknown names are ignored. A recruitmax below recruitmin is raised to
// recruitmin.
func ParseAttributes(raw map[string]string) (Attributes, error) {
	out := DefaultAttributes()
	for name, v := range raw {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		switch strings.ToLower(name) {
		case AttrValue:
			d, err := parseNonNegative(name, v)
			if err != nil {
				return out, err
			}
			out.Value = d
		case AttrRecruitMin:
			d, err := parseNonNegative(name, v)
			if err != nil {
				return out, err
			}
			out.RecruitMin = d
		case AttrRecruitMax:
			d, err := parseNonNegative(name, v)
			if err != nil {
				return out, err
			}
			out.RecruitMax = d
		}
	}
	if out.RecruitMax.LessThan(out.RecruitMin) {
		out.RecruitMax = out.RecruitMin
	}
	return out, nil
}

func parseNonNegative(name, v string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s=%q", ErrInvalidAttribute, name, v)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s must be >= 0", ErrInvalidAttribute, name)
	}
	return d, nil
}

func IsMarketType(t string) bool {
	return slices.Contains(MarketTypes, t)
}

func IsPersonnelType(t string) bool {
	return slices.Contains(PersonnelTypes, t)
}

// NormalizeType maps a case-insensitive type name onto its canonical form.
func NormalizeType(t string) (string, bool) {
	t = strings.TrimSpace(t)
	for _, known := range append(slices.Clone(MarketTypes), PersonnelTypes...) {
		if strings.EqualFold(known, t) {
			return known, true
		}
	}
	return "", false
}
