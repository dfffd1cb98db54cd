package models

import (
	"encoding/json"
	"sort"
)

// ============================================================================
// Migration Phases
// ============================================================================

// Phase is one stage of the fixed migration wizard sequence.
type Phase string

const (
	PhaseUpload     Phase = "upload"
	PhaseDiscovery  Phase = "discovery"
	PhaseMapping    Phase = "mapping"
	PhaseCodegen    Phase = "codegen"
	PhaseValidation Phase = "validation"
)

// OrderedPhases lists every phase in wizard order.
var OrderedPhases = []Phase{
	PhaseUpload,
	PhaseDiscovery,
	PhaseMapping,
	PhaseCodegen,
	PhaseValidation,
}

// IsValidPhase checks if the given phase is one of the wizard phases.
func IsValidPhase(p Phase) bool {
	return p.Index() >= 0
}

// Index returns the position of the phase in OrderedPhases, or -1 if unknown.
func (p Phase) Index() int {
	for i, v := range OrderedPhases {
		if v == p {
			return i
		}
	}
	return -1
}

// Next returns the phase after p. The second return value is false when p is
// the last phase or unknown.
func (p Phase) Next() (Phase, bool) {
	i := p.Index()
	if i < 0 || i+1 >= len(OrderedPhases) {
		return "", false
	}
	return OrderedPhases[i+1], true
}

// Before reports whether p comes earlier in the wizard than other.
func (p Phase) Before(other Phase) bool {
	return p.Index() >= 0 && other.Index() >= 0 && p.Index() < other.Index()
}

// ============================================================================
// Phase Set
// ============================================================================

// PhaseSet is the set of phases a project has completed.
// It serializes as a list ordered by wizard position.
type PhaseSet map[Phase]struct{}

// NewPhaseSet returns a set containing the given phases.
func NewPhaseSet(phases ...Phase) PhaseSet {
	s := make(PhaseSet, len(phases))
	for _, p := range phases {
		s[p] = struct{}{}
	}
	return s
}

// Add inserts p. Adding an existing phase is a no-op.
func (s PhaseSet) Add(p Phase) {
	s[p] = struct{}{}
}

// Has reports whether p is in the set.
func (s PhaseSet) Has(p Phase) bool {
	_, ok := s[p]
	return ok
}

// List returns the phases ordered by wizard position. Unknown phases sort last.
func (s PhaseSet) List() []Phase {
	out := make([]Phase, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Index(), out[j].Index()
		if a < 0 {
			a = len(OrderedPhases)
		}
		if b < 0 {
			b = len(OrderedPhases)
		}
		if a != b {
			return a < b
		}
		return out[i] < out[j]
	})
	return out
}

// Clone returns an independent copy of the set.
func (s PhaseSet) Clone() PhaseSet {
	c := make(PhaseSet, len(s))
	for p := range s {
		c[p] = struct{}{}
	}
	return c
}

// MarshalJSON encodes the set as an ordered array.
func (s PhaseSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.List())
}

// UnmarshalJSON decodes an array of phases.
func (s *PhaseSet) UnmarshalJSON(data []byte) error {
	var phases []Phase
	if err := json.Unmarshal(data, &phases); err != nil {
		return err
	}
	*s = NewPhaseSet(phases...)
	return nil
}
