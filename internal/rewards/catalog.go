// Package rewards holds the static reward catalog loaded once at boot.
package rewards

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	DiscountAmount  = "amount"
	DiscountPercent = "percent"
)

var (
	ErrUnknownReward  = errors.New("unknown reward")
	ErrInvalidCatalog = errors.New("invalid reward catalog")
)

type Discount struct {
	Type        string `yaml:"type" json:"type"`
	AmountCents int64  `yaml:"amount_cents,omitempty" json:"amount_cents,omitempty"`
	Percent     int    `yaml:"percent,omitempty" json:"percent,omitempty"`
}

// Display renders the discount for customers, e.g. "$4.00 off" or "10% off".
func (d Discount) Display() string {
	if d.Type == DiscountPercent {
		return fmt.Sprintf("%d%% off", d.Percent)
	}
	return "$" + decimal.New(d.AmountCents, -2).StringFixed(2) + " off"
}

func (d Discount) validate() error {
	switch d.Type {
	case DiscountAmount:
		if d.AmountCents <= 0 {
			return errors.New("amount discount needs positive amount_cents")
		}
	case DiscountPercent:
		if d.Percent <= 0 || d.Percent > 100 {
			return errors.New("percent discount must be within 1..100")
		}
	default:
		return fmt.Errorf("unknown discount type %q", d.Type)
	}
	return nil
}

type Definition struct {
	ID         string   `yaml:"id" json:"reward_id"`
	Name       string   `yaml:"name" json:"name"`
	CostPoints int64    `yaml:"cost_points" json:"cost_points"`
	Discount   Discount `yaml:"discount" json:"discount"`
}

// Catalog is immutable once built.
type Catalog struct {
	byID    map[string]Definition
	ordered []Definition
}

func NewCatalog(defs []Definition) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]Definition, len(defs))}

	var errs []error
	for _, d := range defs {
		d.ID = strings.TrimSpace(d.ID)
		switch {
		case d.ID == "":
			errs = append(errs, errors.New("reward without id"))
			continue
		case d.CostPoints <= 0:
			errs = append(errs, fmt.Errorf("%s: cost_points must be positive", d.ID))
			continue
		}
		if err := d.Discount.validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.ID, err))
			continue
		}
		if _, dup := c.byID[d.ID]; dup {
			errs = append(errs, fmt.Errorf("%s: duplicate reward id", d.ID))
			continue
		}
		if d.Name == "" {
			d.Name = d.ID
		}
		c.byID[d.ID] = d
		c.ordered = append(c.ordered, d)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, errors.Join(errs...))
	}
	if len(c.ordered) == 0 {
		return nil, fmt.Errorf("%w: no rewards defined", ErrInvalidCatalog)
	}

	sort.SliceStable(c.ordered, func(i, j int) bool {
		return c.ordered[i].CostPoints < c.ordered[j].CostPoints
	})
	return c, nil
}

// Default is the catalog shipped with the shop.
func Default() *Catalog {
	c, err := NewCatalog([]Definition{
		{ID: "free-espresso-shot", Name: "Free Espresso Shot", CostPoints: 50, Discount: Discount{Type: DiscountAmount, AmountCents: 400}},
		{ID: "free-latte", Name: "Free Latte", CostPoints: 100, Discount: Discount{Type: DiscountAmount, AmountCents: 800}},
		{ID: "merch-5-off", Name: "$5 Off Merch", CostPoints: 120, Discount: Discount{Type: DiscountAmount, AmountCents: 500}},
	})
	if err != nil {
		panic(err)
	}
	return c
}

type catalogFile struct {
	Rewards []Definition `yaml:"rewards"`
}

// LoadFile reads a YAML catalog of the form `rewards: [{id, name, cost_points, discount}]`.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reward catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	return NewCatalog(f.Rewards)
}

func (c *Catalog) Lookup(id string) (Definition, error) {
	d, ok := c.byID[id]
	if !ok {
		return Definition{}, ErrUnknownReward
	}
	return d, nil
}

// All returns the rewards ordered by cost.
func (c *Catalog) All() []Definition {
	out := make([]Definition, len(c.ordered))
	copy(out, c.ordered)
	return out
}
