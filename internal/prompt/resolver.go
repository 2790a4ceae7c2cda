package prompt

import (
	"errors"
	"fmt"

	"github.com/ivlev/planetreel/internal/catalog"
	"github.com/ivlev/planetreel/internal/config"
)

var ErrIdentifierCollision = errors.New("identifier already used by another record")

// Resolver hands out unique identifiers for the records of one run.
// Sanitized names that come out empty fall back to the record's position;
// duplicates are either suffixed or rejected depending on the policy.
// Not safe for concurrent use.
type Resolver struct {
	policy   string
	owners   map[string]int // identifier -> record index that claimed it
	counters map[string]int // base identifier -> next suffix to try
}

// NewResolver returns a resolver using one of the config.Collision* policies.
func NewResolver(policy string) *Resolver {
	return &Resolver{
		policy:   policy,
		owners:   make(map[string]int),
		counters: make(map[string]int),
	}
}

// Resolve returns the identifier record r should use for its frames and video.
func (res *Resolver) Resolve(r catalog.Record, p Prompt) (string, error) {
	id := p.Identifier
	if id == "" {
		id = fmt.Sprintf("record_%04d", r.Index)
	}

	owner, taken := res.owners[id]
	if !taken || owner == r.Index {
		res.owners[id] = r.Index
		return id, nil
	}

	if res.policy == config.CollisionFail {
		return "", fmt.Errorf("%w: %q (record %d)", ErrIdentifierCollision, id, owner)
	}

	n := res.counters[id]
	if n == 0 {
		n = 2
	}
	for {
		candidate := fmt.Sprintf("%s_%d", id, n)
		n++
		if _, used := res.owners[candidate]; !used {
			res.counters[id] = n
			res.owners[candidate] = r.Index
			return candidate, nil
		}
	}
}
