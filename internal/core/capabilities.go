package core

import "github.com/tabularql/tabularql/internal/qerrors"

// CapabilityName names an optional engine feature a deployment may
// declare disabled via configuration.
type CapabilityName string

const (
	// CapabilityPivot gates the PIVOT clause.
	CapabilityPivot CapabilityName = "pivot"
	// CapabilityRegexMatches gates the MATCHES filter operator.
	CapabilityRegexMatches CapabilityName = "regex_matches"
)

// CapabilityChecker reports whether a named capability is enabled.
// ValidateCapabilities treats a nil CapabilityChecker as enabling every
// capability.
type CapabilityChecker interface {
	HasCapability(name CapabilityName) bool
}

// ValidateCapabilities fails with a NOT_SUPPORTED error if q uses a
// clause or operator gated by a capability caps reports disabled.
func (q *Query) ValidateCapabilities(caps CapabilityChecker) error {
	if caps == nil {
		return nil
	}
	if len(q.Pivot) > 0 && !caps.HasCapability(CapabilityPivot) {
		return qerrors.NotSupportedf("PIVOT", "PIVOT is disabled by engine capabilities")
	}
	if q.Where.UsesMatches() && !caps.HasCapability(CapabilityRegexMatches) {
		return qerrors.NotSupportedf("WHERE", "MATCHES is disabled by engine capabilities")
	}
	return nil
}
