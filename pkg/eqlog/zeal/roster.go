package zeal

import "strings"

// Roster is the raid roster keyed by character name.
//
// Merge updates records for names it already holds in place, so pointers
// obtained from Get stay valid across updates.
type Roster struct {
	order  []string
	byName map[string]*RaidCharacter
}

// NewRoster returns an empty roster.
func NewRoster() *Roster {
	return &Roster{byName: make(map[string]*RaidCharacter)}
}

// Merge replaces the roster contents with members. Names are compared
// exactly. Characters missing from members are dropped.
func (r *Roster) Merge(members []RaidCharacter) {
	next := make(map[string]*RaidCharacter, len(members))
	order := make([]string, 0, len(members))
	for _, m := range members {
		if m.Name == "" {
			continue
		}
		if _, dup := next[m.Name]; dup {
			*next[m.Name] = m
			continue
		}
		rc, ok := r.byName[m.Name]
		if ok {
			*rc = m
		} else {
			rc = new(RaidCharacter)
			*rc = m
		}
		next[m.Name] = rc
		order = append(order, m.Name)
	}
	r.byName = next
	r.order = order
}

// Get returns the record for name.
func (r *Roster) Get(name string) (*RaidCharacter, bool) {
	rc, ok := r.byName[name]
	return rc, ok
}

// Find returns the record for name, falling back to a case-insensitive
// match.
func (r *Roster) Find(name string) (*RaidCharacter, bool) {
	if rc, ok := r.byName[name]; ok {
		return rc, true
	}
	for _, n := range r.order {
		if strings.EqualFold(n, name) {
			return r.byName[n], true
		}
	}
	return nil, false
}

// Len returns the number of characters.
func (r *Roster) Len() int { return len(r.order) }

// Members returns a copy of the records in roster order.
func (r *Roster) Members() []RaidCharacter {
	out := make([]RaidCharacter, len(r.order))
	for i, name := range r.order {
		out[i] = *r.byName[name]
	}
	return out
}
