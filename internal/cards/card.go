// Package cards normalizes raw set data into the catalog used by the binder:
// every printing, the canonical base printings, and the alt-art maps between them.
package cards

import "strings"

// Card is one printing within a set. Identity is (SetKey, Number).
type Card struct {
	SetKey string `json:"setKey"`

	// Basic card information
	Name     string `json:"name"`
	Subtitle string `json:"subtitle,omitempty"`
	Number   int    `json:"number"`

	// Aspects are ordered; only the first drives slot coloring.
	Aspects []string `json:"aspects"`

	// Type drives the ownership quota (Leader/Base vs everything else).
	Type   string `json:"type,omitempty"`
	Rarity string `json:"rarity,omitempty"`

	MarketPrice float64 `json:"marketPrice"`
}

// PrimaryAspect returns the first aspect, or "" when the card has none.
func (c Card) PrimaryAspect() string {
	if len(c.Aspects) == 0 {
		return ""
	}
	return c.Aspects[0]
}

// DisplayName returns "Name - Subtitle" when a subtitle is present.
func (c Card) DisplayName() string {
	if c.Subtitle == "" {
		return c.Name
	}
	return c.Name + " - " + c.Subtitle
}

// groupKey identifies all printings of the same base card.
type groupKey struct {
	name     string
	subtitle string
	kind     string
}

func keyOf(c Card) groupKey {
	return groupKey{
		name:     foldKey(c.Name),
		subtitle: foldKey(c.Subtitle),
		kind:     foldKey(c.Type),
	}
}

func foldKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

const (
	// TypeLeader is the canonical Leader type name.
	TypeLeader = "Leader"
	// TypeBase is the canonical Base type name.
	TypeBase = "Base"

	// SingletonQuota is the playset size for Leader and Base cards.
	SingletonQuota = 1
	// DefaultQuota is the playset size for every other card type.
	DefaultQuota = 3
)

// Quota returns the maximum trackable quantity for a card type:
// 1 for Leader and Base, 3 otherwise.
func Quota(cardType string) int {
	t := strings.TrimSpace(cardType)
	if strings.EqualFold(t, TypeLeader) || strings.EqualFold(t, TypeBase) {
		return SingletonQuota
	}
	return DefaultQuota
}

// Quota returns the card's quota.
func (c Card) Quota() int {
	return Quota(c.Type)
}
