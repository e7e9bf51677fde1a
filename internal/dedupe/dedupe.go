// Package dedupe picks the records that make it into a collage.
//
// Records are grouped twice, by content fingerprint and by base name, and
// each group elects its earliest-created member. Ties go to the record
// submitted first. Survivors are always returned in submission order.
package dedupe

import (
	"fmt"
	"strings"
	"time"

	"image-collage/internal/media"
)

// Policy decides how the two elections combine.
type Policy int

const (
	// PolicyUnion keeps a record that wins either election. Two copies of
	// the same picture under different names both survive.
	PolicyUnion Policy = iota
	// PolicyStrict keeps a record only if it wins both elections.
	PolicyStrict
)

func (p Policy) String() string {
	switch p {
	case PolicyStrict:
		return "strict"
	default:
		return "union"
	}
}

// ParsePolicy accepts "union" or "strict", case-insensitively. Empty means
// union.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "union":
		return PolicyUnion, nil
	case "strict":
		return PolicyStrict, nil
	default:
		return PolicyUnion, fmt.Errorf("unknown dedupe policy %q (want union or strict)", s)
	}
}

type earliest struct {
	created time.Time
	index   int
}

// elect returns, per key, the position of the earliest record.
func elect[K comparable](records []*media.Record, key func(*media.Record) K) map[K]earliest {
	best := make(map[K]earliest, len(records))
	for i, rec := range records {
		k := key(rec)
		if cur, ok := best[k]; !ok || rec.Created.Before(cur.created) {
			best[k] = earliest{created: rec.Created, index: i}
		}
	}
	return best
}

func winners[K comparable](best map[K]earliest, n int) []bool {
	won := make([]bool, n)
	for _, e := range best {
		won[e.index] = true
	}
	return won
}

// Survivors returns the ascending positions in records that survive under p.
// records must be in submission order.
func (p Policy) Survivors(records []*media.Record) []int {
	if len(records) == 0 {
		return nil
	}

	byContent := winners(elect(records, func(r *media.Record) media.Fingerprint { return r.Fingerprint }), len(records))
	byName := winners(elect(records, func(r *media.Record) string { return r.Name }), len(records))

	var kept []int
	for i := range records {
		keep := byContent[i] || byName[i]
		if p == PolicyStrict {
			keep = byContent[i] && byName[i]
		}
		if keep {
			kept = append(kept, i)
		}
	}
	return kept
}

// Select returns the surviving records themselves.
func (p Policy) Select(records []*media.Record) []*media.Record {
	idx := p.Survivors(records)
	out := make([]*media.Record, 0, len(idx))
	for _, i := range idx {
		out = append(out, records[i])
	}
	return out
}

// Survivors applies PolicyUnion.
func Survivors(records []*media.Record) []int {
	return PolicyUnion.Survivors(records)
}

// Select applies PolicyUnion.
func Select(records []*media.Record) []*media.Record {
	return PolicyUnion.Select(records)
}
