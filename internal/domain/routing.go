package domain

import "fmt"

// RoutingDecision is the classifier's output: which processor (or
// processors) should run for a transcript, how confident the classifier
// is, and which mode ultimately produced the decision after any fallback.
type RoutingDecision struct {
	Primary    AgentID        `json:"primary"`
	Secondary  []AgentID      `json:"secondary"`
	Confidence float64        `json:"confidence"`
	Rationale  string         `json:"rationale"`
	Mode       ClassifierMode `json:"mode"`
}

// Validate enforces the Routing Decision invariants from the data model:
// primary is never empty, secondaries never contain the primary, and no
// agent identifier appears more than once overall.
func (d RoutingDecision) Validate() error {
	if !d.Primary.Valid() {
		return fmt.Errorf("domain: routing decision has invalid primary %q", d.Primary)
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("domain: routing decision confidence %v out of [0,1]", d.Confidence)
	}
	seen := map[AgentID]bool{d.Primary: true}
	for _, s := range d.Secondary {
		if !s.Valid() {
			return fmt.Errorf("domain: routing decision has invalid secondary %q", s)
		}
		if s == d.Primary {
			return fmt.Errorf("domain: secondary %q duplicates primary", s)
		}
		if seen[s] {
			return fmt.Errorf("domain: secondary %q appears more than once", s)
		}
		seen[s] = true
	}
	return nil
}

// AllAgents returns primary followed by secondaries, in invocation order.
func (d RoutingDecision) AllAgents() []AgentID {
	out := make([]AgentID, 0, 1+len(d.Secondary))
	out = append(out, d.Primary)
	out = append(out, d.Secondary...)
	return out
}
