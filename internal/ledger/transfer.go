package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/ramonehamilton/swu-binder/internal/cards"
	"github.com/ramonehamilton/swu-binder/internal/events"
)

// SnapshotVersion is the current export format version.
const SnapshotVersion = 1

// Snapshot is the combined export of every known set's ledger.
type Snapshot struct {
	Version int                       `json:"version"`
	Sets    map[string]map[string]int `json:"sets"`
}

// Imported converts the snapshot into the import structure.
// Keys that are not positive integers are an error.
func (s Snapshot) Imported() (map[string]Counts, error) {
	out := make(map[string]Counts, len(s.Sets))
	for setKey, counts := range s.Sets {
		c := make(Counts, len(counts))
		for k, q := range counts {
			n, err := strconv.Atoi(strings.TrimSpace(k))
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("set %s: bad card number %q", setKey, k)
			}
			c[n] += q
		}
		out[setKey] = c
	}
	return out, nil
}

// ImportMode selects how imported counts combine with the existing ledger.
type ImportMode string

const (
	// ModeReplace overwrites each imported set's ledger.
	ModeReplace ImportMode = "replace"
	// ModeMerge adds imported counts to existing ones.
	ModeMerge ImportMode = "merge"
)

// ParseImportMode maps a case-insensitive name onto an ImportMode.
func ParseImportMode(s string) (ImportMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "replace":
		return ModeReplace, nil
	case "merge":
		return ModeMerge, nil
	}
	return "", fmt.Errorf("%w: import mode %q", ErrInvalidAction, s)
}

// ImportResult summarizes an import.
type ImportResult struct {
	Mode    ImportMode `json:"mode"`
	Sets    []string   `json:"sets"`
	Applied int        `json:"applied"`
	Skipped int        `json:"skipped"`
	// UnknownSets lists set keys that had no catalog; their rows are skipped.
	UnknownSets []string `json:"unknownSets,omitempty"`
}

// Import applies externally sourced counts keyed by set and card number.
// Alt printing numbers are resolved to their base, counts for the same base
// are summed, and every result is capped at quota. Numbers that are not in
// the set's catalog are skipped.
//
// Every set's result is computed before anything is written. A BatchStore
// persists them in one call; with any other store a failed write restores
// the sets already written, and the in-memory ledger is left untouched.
func (l *Ledger) Import(ctx context.Context, data map[string]Counts, mode ImportMode) (ImportResult, error) {
	if _, err := ParseImportMode(string(mode)); err != nil {
		return ImportResult{}, err
	}

	res := ImportResult{Mode: mode, Sets: []string{}}
	catalogs := make(map[string]*cards.Catalog, len(data))
	for _, setKey := range sortedKeys(data) {
		cat, err := l.catalog(ctx, setKey)
		if err != nil {
			l.logger.Warn("import skipped set", "set", setKey, "error", err)
			res.UnknownSets = append(res.UnknownSets, setKey)
			res.Skipped += len(data[setKey])
			continue
		}
		catalogs[setKey] = cat
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	batchID := uuid.NewString()
	source := "import:" + string(mode)

	// Keys differing only in case share one state; later keys build on earlier ones.
	staged := make(map[*setState]Counts)
	var order []*setState
	for _, setKey := range sortedKeys(data) {
		cat, ok := catalogs[setKey]
		if !ok {
			continue
		}

		imported := make(Counts)
		for n, q := range data[setKey] {
			base, ok := cat.ResolveBase(n)
			if !ok || q <= 0 {
				res.Skipped++
				continue
			}
			imported[base] += q
			res.Applied++
		}

		st, err := l.load(ctx, cat.SetKey)
		if err != nil {
			return ImportResult{}, err
		}
		cur, seen := staged[st]
		if !seen {
			cur = st.counts
			order = append(order, st)
			res.Sets = append(res.Sets, cat.SetKey)
		}
		next := Counts{}
		if mode == ModeMerge {
			next = cur.Clone()
		}
		for base, q := range imported {
			card, _ := cat.Base(base)
			setQuantity(next, base, min(next[base]+q, quotaFor(cat, card)))
		}
		staged[st] = next
	}

	var pending []*pendingSet
	for _, st := range order {
		p, err := l.prepare(st, staged[st], source, batchID)
		if err != nil {
			return ImportResult{}, err
		}
		if p != nil {
			pending = append(pending, p)
		}
	}

	if err := l.saveAll(ctx, pending); err != nil {
		return ImportResult{}, err
	}
	for _, p := range pending {
		l.install(ctx, p)
	}

	l.logger.Info("ledger import",
		"mode", mode, "sets", len(res.Sets), "applied", res.Applied, "skipped", res.Skipped)
	l.dispatch(ctx, events.LedgerImported, events.LedgerImportedEvent{
		Mode:    string(mode),
		Sets:    res.Sets,
		Applied: res.Applied,
		Skipped: res.Skipped,
	})
	return res, nil
}

// ImportSnapshot applies a previously exported snapshot.
func (l *Ledger) ImportSnapshot(ctx context.Context, snap Snapshot, mode ImportMode) (ImportResult, error) {
	if snap.Version != SnapshotVersion {
		return ImportResult{}, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	data, err := snap.Imported()
	if err != nil {
		return ImportResult{}, err
	}
	return l.Import(ctx, data, mode)
}

// Export snapshots every set that is loaded in memory or present in the store.
func (l *Ledger) Export(ctx context.Context) (Snapshot, error) {
	stored, err := l.store.SetKeys(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list stored sets: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, key := range stored {
		if _, err := l.load(ctx, key); err != nil {
			return Snapshot{}, err
		}
	}

	snap := Snapshot{Version: SnapshotVersion, Sets: make(map[string]map[string]int, len(l.sets))}
	for _, st := range l.sets {
		out := make(map[string]int, len(st.counts))
		for n, q := range st.counts {
			out[strconv.Itoa(n)] = q
		}
		snap.Sets[st.key] = out
	}
	return snap, nil
}

// saveAll persists every pending set or none of them. Caller holds l.mu.
func (l *Ledger) saveAll(ctx context.Context, pending []*pendingSet) error {
	if len(pending) == 0 {
		return nil
	}

	if bs, ok := l.store.(BatchStore); ok {
		writes := make([]SetWrite, 0, len(pending))
		for _, p := range pending {
			writes = append(writes, SetWrite{SetKey: p.st.key, Payload: p.payload, Batch: p.batch})
		}
		if err := bs.SaveSets(ctx, writes); err != nil {
			return fmt.Errorf("save import: %w", err)
		}
		return nil
	}

	for i, p := range pending {
		if err := l.store.SaveSet(ctx, p.st.key, p.payload, p.batch); err != nil {
			l.restore(ctx, pending[:i])
			return fmt.Errorf("save ledger %s: %w", p.st.key, err)
		}
	}
	return nil
}

// restore writes back the installed ledgers of sets whose replacement was
// already persisted. Caller holds l.mu.
func (l *Ledger) restore(ctx context.Context, written []*pendingSet) {
	for _, p := range written {
		undo, err := l.prepare(&setState{key: p.st.key, counts: p.next}, p.st.counts, "restore", p.batch.ID)
		if err != nil || undo == nil {
			continue
		}
		if err := l.store.SaveSet(ctx, p.st.key, undo.payload, undo.batch); err != nil {
			l.logger.Error("failed to restore ledger after partial import", "set", p.st.key, "error", err)
		}
	}
}

// MarshalSnapshot renders a snapshot as indented JSON.
func MarshalSnapshot(s Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

func sortedKeys(m map[string]Counts) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
