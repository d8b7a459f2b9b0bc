// Package prize defines the versioned prize rule configuration.
package prize

import (
	"fmt"
	"time"
)

// Default multipliers: a ₱10 standard bet pays ₱4,500, a ₱10 rambolito pays
// ₱750, and a rambolito with a repeated digit pays ₱1,500.
const (
	DefaultStandardMultiplier        = 450.0
	DefaultRambolitoMultiplier       = 75.0
	DefaultRambolitoDoubleMultiplier = 150.0
)

// Rule is one prize configuration version. Rules are never edited in place;
// administrators append a new version with a later EffectiveAt so historical
// settlements stay reproducible.
type Rule struct {
	ID                        string    `json:"id"`
	StandardMultiplier        float64   `json:"standard_multiplier"`
	RambolitoMultiplier       float64   `json:"rambolito_multiplier"`
	RambolitoDoubleMultiplier float64   `json:"rambolito_double_multiplier"`
	EffectiveAt               time.Time `json:"effective_at"`
	CreatedBy                 string    `json:"created_by"`
	CreatedAt                 time.Time `json:"created_at"`
}

// DefaultRule returns the built-in configuration, effective from the zero
// time so it matches any draw when no admin rule exists.
func DefaultRule() Rule {
	return Rule{
		StandardMultiplier:        DefaultStandardMultiplier,
		RambolitoMultiplier:       DefaultRambolitoMultiplier,
		RambolitoDoubleMultiplier: DefaultRambolitoDoubleMultiplier,
	}
}

// Validate checks a rule version before it is stored.
func (r Rule) Validate() error {
	if r.StandardMultiplier <= 0 || r.RambolitoMultiplier <= 0 || r.RambolitoDoubleMultiplier <= 0 {
		return fmt.Errorf("multipliers must be positive")
	}
	if r.RambolitoDoubleMultiplier < r.RambolitoMultiplier {
		return fmt.Errorf("double multiplier must not be below the regular rambolito multiplier")
	}
	return nil
}
