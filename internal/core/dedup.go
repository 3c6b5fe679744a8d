package core

// dedup.go is the best-effort duplicate check shared by import and direct
// create. Storage does not enforce natural-key uniqueness; callers hold the
// natural-key lock from LockNaturalKey while checking and inserting.

import (
	"context"
	"strings"
)

// NaturalKey builds a case-insensitive lock/compare key from key parts.
func NaturalKey(et EntityType, parts ...string) string {
	folded := make([]string, len(parts))
	for i, p := range parts {
		folded[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return string(et) + ":" + strings.Join(folded, "\x1f")
}

// IsDuplicate reports whether rec's natural key already exists.
func IsDuplicate(ctx context.Context, st ImportStore, def EntityDefinition, rec any) (bool, error) {
	return def.Exists(ctx, st, rec)
}

// insertUnique locks rec's natural key, checks for a duplicate and inserts.
// It returns ErrDuplicate without side effects when the key exists.
func insertUnique(ctx context.Context, st ImportStore, def EntityDefinition, rec any) (int64, error) {
	if err := st.LockNaturalKey(ctx, def.NaturalKey(rec)); err != nil {
		return 0, err
	}
	dup, err := IsDuplicate(ctx, st, def, rec)
	if err != nil {
		return 0, err
	}
	if dup {
		return 0, ErrDuplicate
	}
	return def.Insert(ctx, st, rec)
}
