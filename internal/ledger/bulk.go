package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ramonehamilton/swu-binder/internal/cards"
)

// Action is a bulk ledger operation.
type Action string

const (
	ActionAdd       Action = "add"
	ActionAddMax    Action = "addMax"
	ActionRemove    Action = "remove"
	ActionRemoveAll Action = "removeAll"
)

// TargetAll selects every base card in the set.
const TargetAll = "all"

// ParseAction maps a case-insensitive action name onto an Action.
func ParseAction(s string) (Action, error) {
	for _, a := range []Action{ActionAdd, ActionAddMax, ActionRemove, ActionRemoveAll} {
		if strings.EqualFold(strings.TrimSpace(s), string(a)) {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
}

// BulkResult reports what a bulk operation touched.
type BulkResult struct {
	SetKey   string `json:"setKey"`
	Selected int    `json:"selected"`
	Changed  int    `json:"changed"`
}

// BulkApply applies action to every base card matching target: "all", a
// rarity, the "Special" rarity grouping, or a type. qty applies to add and
// remove; values below 1 mean 1. The whole set is replaced in one step.
func (l *Ledger) BulkApply(ctx context.Context, setKey string, action Action, target string, qty int) (BulkResult, error) {
	if _, err := ParseAction(string(action)); err != nil {
		return BulkResult{}, err
	}
	if qty < 1 {
		qty = 1
	}

	cat, err := l.catalog(ctx, setKey)
	if err != nil {
		return BulkResult{}, err
	}
	match := l.targetMatcher(target)

	l.mu.Lock()
	defer l.mu.Unlock()

	st, err := l.load(ctx, cat.SetKey)
	if err != nil {
		return BulkResult{}, err
	}
	next := st.counts.Clone()
	res := BulkResult{SetKey: cat.SetKey}

	for _, card := range cat.BaseCards {
		if !match(card) {
			continue
		}
		res.Selected++

		cur := next[card.Number]
		quota := quotaFor(cat, card)
		want := cur
		switch action {
		case ActionAdd:
			if cur < quota {
				want = min(cur+qty, quota)
			}
		case ActionAddMax:
			if cur < quota {
				want = quota
			}
		case ActionRemove:
			want = max(cur-qty, 0)
		case ActionRemoveAll:
			want = 0
		}
		setQuantity(next, card.Number, want)
	}

	res.Changed = len(diff(st.counts, next))
	source := "bulk:" + string(action)
	if err := l.commit(ctx, st, next, source, uuid.NewString()); err != nil {
		return BulkResult{}, err
	}

	l.logger.Info("bulk ledger update",
		"set", st.key, "action", action, "target", target,
		"selected", res.Selected, "changed", res.Changed)
	return res, nil
}

// targetMatcher builds the predicate for a bulk target. Targets are matched
// case-insensitively and may use any synonym, e.g. "c" for Common.
func (l *Ledger) targetMatcher(target string) func(cards.Card) bool {
	t := strings.TrimSpace(target)
	if t == "" || strings.EqualFold(t, TargetAll) {
		return func(cards.Card) bool { return true }
	}

	rarity := l.syn.NormalizeRarity(t)
	kind := l.syn.NormalizeType(t)
	special := strings.EqualFold(rarity, cards.RaritySpecial)

	return func(c cards.Card) bool {
		if strings.EqualFold(c.Rarity, rarity) || strings.EqualFold(c.Type, kind) {
			return true
		}
		return special && l.syn.IsSpecial(c.Rarity)
	}
}
