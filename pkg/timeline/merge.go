package timeline

import (
	"fmt"
	"strings"
)

// Policy decides which payload survives when both inputs carry the same id
type Policy string

const (
	// PreferIncoming keeps the most recently fetched payload
	PreferIncoming Policy = "incoming"
	// PreferExisting keeps the first-seen payload
	PreferExisting Policy = "existing"
)

// ParsePolicy converts a configuration value into a Policy, ignoring case
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case PreferIncoming, "":
		return PreferIncoming, nil
	case PreferExisting:
		return PreferExisting, nil
	default:
		return "", fmt.Errorf("unknown merge policy %q", s)
	}
}

// Merge returns the union of existing and incoming by id, incoming winning ties.
func Merge(existing, incoming []Entry) []Entry {
	return MergeWith(PreferIncoming, existing, incoming)
}

// MergeWith returns the union of existing and incoming by id. Entries keep the
// position of their first appearance (existing first, then incoming); the
// payload at that position follows the policy. Duplicates inside a single
// input are collapsed the same way.
func MergeWith(policy Policy, existing, incoming []Entry) []Entry {
	index := make(map[int64]int, len(existing)+len(incoming))
	merged := make([]Entry, 0, len(existing)+len(incoming))

	put := func(e Entry) {
		pos, seen := index[e.ID]
		if !seen {
			index[e.ID] = len(merged)
			merged = append(merged, e)
			return
		}
		if policy != PreferExisting {
			merged[pos] = e
		}
	}

	for _, e := range existing {
		put(e)
	}
	for _, e := range incoming {
		put(e)
	}
	return merged
}

// NewIDs lists the ids of incoming that are absent from existing, in order
func NewIDs(existing, incoming []Entry) []int64 {
	known := make(map[int64]struct{}, len(existing))
	for _, e := range existing {
		known[e.ID] = struct{}{}
	}

	var ids []int64
	for _, e := range incoming {
		if _, ok := known[e.ID]; ok {
			continue
		}
		known[e.ID] = struct{}{}
		ids = append(ids, e.ID)
	}
	return ids
}
