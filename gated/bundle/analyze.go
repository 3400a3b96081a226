package bundle

import (
	"slices"

	"github.com/LerianStudio/lib-gated/gated"
	"github.com/LerianStudio/lib-gated/gated/ledger"
	"github.com/LerianStudio/lib-gated/gated/registry"
)

// Role is the side an identity is recorded on.
type Role string

// Recorded sides.
const (
	RoleSource      Role = "source"
	RoleDestination Role = "destination"
)

// Requirement is an authorization the ledger checks at a hop.
type Requirement struct {
	Hop      int            `json:"hop"`
	Identity gated.Identity `json:"identity"`
	Role     Role           `json:"role"`
}

// Analysis describes the authorization footprint of a sequence.
type Analysis struct {
	// Requirements lists every check in execution order.
	Requirements []Requirement `json:"requirements"`
	// Required is the deduplicated set of identities that must be authorized,
	// in order of first appearance.
	Required []gated.Identity `json:"required"`
	// Relays are callers never recorded as a side.
	Relays []gated.Identity `json:"relays"`
	// Intermediaries receive value at one hop and forward it at a later one.
	Intermediaries []gated.Identity `json:"intermediaries"`
	// Violation is the first requirement that authz does not satisfy.
	Violation *Requirement `json:"violation,omitempty"`
}

// Err returns the ledger error the violation maps to, or nil.
func (a Analysis) Err() error {
	if a.Violation == nil {
		return nil
	}

	if a.Violation.Role == RoleSource {
		return ledger.SourceNotAuthorized(a.Violation.Identity)
	}

	return ledger.DestinationNotAuthorized(a.Violation.Identity)
}

// Analyze derives the authorization requirements of steps and checks them
// against authz. It ignores balances; see Simulate.
func Analyze(steps []Step, authz registry.Authorizer) Analysis {
	var analysis Analysis

	recorded := make(map[gated.Identity]struct{})
	receivedAt := make(map[gated.Identity]int)
	intermediaries := make(map[gated.Identity]struct{})

	for hop, step := range steps {
		posting := step.Posting()

		if src, ok := posting.GatedSource(); ok {
			analysis.require(authz, Requirement{Hop: hop, Identity: src, Role: RoleSource}, recorded)

			if k, received := receivedAt[src]; received && k < hop {
				if _, seen := intermediaries[src]; !seen {
					intermediaries[src] = struct{}{}
					analysis.Intermediaries = append(analysis.Intermediaries, src)
				}
			}
		}

		if dst, ok := posting.GatedDestination(); ok {
			analysis.require(authz, Requirement{Hop: hop, Identity: dst, Role: RoleDestination}, recorded)

			if _, received := receivedAt[dst]; !received {
				receivedAt[dst] = hop
			}
		}
	}

	for _, step := range steps {
		if step.Caller.IsZero() {
			continue
		}

		if _, ok := recorded[step.Caller]; ok || slices.Contains(analysis.Relays, step.Caller) {
			continue
		}

		analysis.Relays = append(analysis.Relays, step.Caller)
	}

	return analysis
}

func (a *Analysis) require(authz registry.Authorizer, req Requirement, recorded map[gated.Identity]struct{}) {
	a.Requirements = append(a.Requirements, req)

	if _, ok := recorded[req.Identity]; !ok {
		recorded[req.Identity] = struct{}{}
		a.Required = append(a.Required, req.Identity)
	}

	if a.Violation == nil && !authz.IsAuthorized(req.Identity) {
		violation := req
		a.Violation = &violation
	}
}
