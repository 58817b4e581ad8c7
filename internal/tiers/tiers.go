// Package tiers classifies country features into ranked tiers and derives
// the identifier, classes and fill each rendered shape receives.
package tiers

import (
	"strconv"
	"strings"

	"github.com/abrezinsky/cartepays/internal/errors"
	"github.com/abrezinsky/cartepays/internal/models"
	"github.com/abrezinsky/cartepays/internal/selection"
)

// Shape classes
const (
	ClassCountry    = "pays"
	ClassSelectable = "selectionnable"
	categoryPrefix  = "categorie-"
)

// DefaultFill colors countries that belong to no tier
const DefaultFill = "#D6DCE1"

// SelectableSelector matches the shapes that accept hover and click
const SelectableSelector = "." + ClassCountry + "." + ClassSelectable

// MatchPolicy decides which CountryRecord field a feature identifier is
// compared against. Comparisons are case-sensitive.
type MatchPolicy int

const (
	// MatchCode compares properties.name with CountryRecord.Code
	MatchCode MatchPolicy = iota
	// MatchName compares properties.name with CountryRecord.Name
	MatchName
	// MatchCodeOrName accepts either field
	MatchCodeOrName
)

// ParseMatchPolicy reads "code", "name"/"nom" or "code_or_name"
func ParseMatchPolicy(s string) (MatchPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "code":
		return MatchCode, nil
	case "name", "nom":
		return MatchName, nil
	case "code_or_name", "either":
		return MatchCodeOrName, nil
	default:
		return MatchCode, errors.Configurationf("unknown match policy %q", s)
	}
}

func (p MatchPolicy) String() string {
	switch p {
	case MatchName:
		return "name"
	case MatchCodeOrName:
		return "code_or_name"
	default:
		return "code"
	}
}

func (p MatchPolicy) matches(featureID string, rec models.CountryRecord) bool {
	switch p {
	case MatchName:
		return featureID == rec.Name
	case MatchCodeOrName:
		return featureID == rec.Code || featureID == rec.Name
	default:
		return featureID == rec.Code
	}
}

// Config is the classifier input. Tiers and Colors are parallel lists.
type Config struct {
	Tiers       []models.TierList
	Colors      []string
	Policy      MatchPolicy
	DefaultFill string
}

// Classification is the result of matching one feature identifier
type Classification struct {
	Rank    int
	Matched bool
	Record  models.CountryRecord
}

// Style is everything a shape receives at bind time
type Style struct {
	ID         string   `json:"id"`
	Classes    []string `json:"classes"`
	Fill       string   `json:"fill"`
	Selectable bool     `json:"selectable"`
	Rank       *int     `json:"rank,omitempty"`
}

// ClassAttr joins the classes the way an SVG class attribute expects
func (s Style) ClassAttr() string {
	return strings.Join(s.Classes, " ")
}

// FillRule assigns a color to every shape matching Selector
type FillRule struct {
	Rank     int    `json:"rank"`
	Selector string `json:"selector"`
	Fill     string `json:"fill"`
}

// Classifier is immutable once built
type Classifier struct {
	tiers       []models.TierList
	colors      []string
	policy      MatchPolicy
	defaultFill string
}

// New validates cfg and builds a classifier. Tier and color counts must be
// equal and every color non-empty.
func New(cfg Config) (*Classifier, error) {
	if err := Validate(cfg.Tiers, cfg.Colors); err != nil {
		return nil, err
	}
	if cfg.Policy < MatchCode || cfg.Policy > MatchCodeOrName {
		return nil, errors.Configurationf("unknown match policy %d", cfg.Policy)
	}

	c := &Classifier{
		tiers:       make([]models.TierList, len(cfg.Tiers)),
		colors:      make([]string, len(cfg.Colors)),
		policy:      cfg.Policy,
		defaultFill: cfg.DefaultFill,
	}
	for i, t := range cfg.Tiers {
		c.tiers[i] = append(models.TierList(nil), t...)
	}
	copy(c.colors, cfg.Colors)
	if c.defaultFill == "" {
		c.defaultFill = DefaultFill
	}
	return c, nil
}

// Validate checks the tier/color invariant without building a classifier
func Validate(tierLists []models.TierList, colors []string) error {
	if len(tierLists) != len(colors) {
		return errors.Configurationf("%d tier lists but %d colors", len(tierLists), len(colors))
	}
	for i, color := range colors {
		if strings.TrimSpace(color) == "" {
			return errors.Configurationf("tier %d has no color", i)
		}
	}
	return nil
}

// Len returns the number of tiers
func (c *Classifier) Len() int {
	return len(c.tiers)
}

// Policy returns the match policy in use
func (c *Classifier) Policy() MatchPolicy {
	return c.policy
}

// Classify finds the first (lowest) rank whose list contains featureID
func (c *Classifier) Classify(featureID string) Classification {
	if featureID == "" {
		return Classification{Rank: -1}
	}
	for rank, list := range c.tiers {
		for _, rec := range list {
			if c.policy.matches(featureID, rec) {
				return Classification{Rank: rank, Matched: true, Record: rec}
			}
		}
	}
	return Classification{Rank: -1}
}

// Style computes the identifier, classes and fill for a feature
func (c *Classifier) Style(featureID string) Style {
	cl := c.Classify(featureID)
	if !cl.Matched {
		return Style{
			ID:      featureID,
			Classes: []string{ClassCountry},
			Fill:    c.defaultFill,
		}
	}

	rank := cl.Rank
	return Style{
		ID:         selection.FormatIdentifier(cl.Record.Code, cl.Record.Name),
		Classes:    []string{ClassCountry, CategoryClass(rank), ClassSelectable},
		Fill:       c.colors[rank],
		Selectable: true,
		Rank:       &rank,
	}
}

// FillRules lists one rule per tier in rank order
func (c *Classifier) FillRules() []FillRule {
	rules := make([]FillRule, len(c.colors))
	for rank, color := range c.colors {
		rules[rank] = FillRule{Rank: rank, Selector: "." + CategoryClass(rank), Fill: color}
	}
	return rules
}

// CategoryClass returns the class for a tier rank
func CategoryClass(rank int) string {
	return categoryPrefix + strconv.Itoa(rank)
}
