package review

import (
	"slices"

	"github.com/parcelreview/backend/internal/domain/review"
)

// CancellationRule cancels an invitation with Reason when Applies holds
type CancellationRule struct {
	Name    string
	Reason  review.Reason
	Applies func(cc *CancellationContext) bool
}

// DefaultCancellationRules returns a fresh copy of the standard rules.
// They are evaluated in order; the first match wins.
func DefaultCancellationRules() []CancellationRule {
	return []CancellationRule{
		{
			Name:   "shipper_not_in_review_network",
			Reason: review.ReasonShipperNotEligible,
			Applies: func(cc *CancellationContext) bool {
				return cc.Shipper == nil || !cc.Shipper.InReviewNetwork
			},
		},
		{
			Name:   "destination_not_trusted",
			Reason: review.ReasonDestinationNotTrusted,
			Applies: func(cc *CancellationContext) bool {
				return !cc.Parcel.IsDestinationTrusted()
			},
		},
		{
			Name:   "conflicting_claim",
			Reason: review.ReasonConflictExists,
			Applies: func(cc *CancellationContext) bool {
				return cc.Claim != nil
			},
		},
	}
}

// CancellationResult is the decision for one context
type CancellationResult struct {
	Context *CancellationContext
	Cancel  bool
	Reason  review.Reason
}

// Evaluation partitions contexts into confirmed and cancelled
type Evaluation struct {
	Confirmed []*CancellationContext
	Cancelled []CancellationResult
}

// CancellationEvaluator applies an ordered rule list. It performs no I/O.
type CancellationEvaluator struct {
	rules []CancellationRule
}

// NewCancellationEvaluator creates an evaluator, using DefaultCancellationRules when none are given.
// The rule list is copied.
func NewCancellationEvaluator(rules ...CancellationRule) *CancellationEvaluator {
	if len(rules) == 0 {
		return &CancellationEvaluator{rules: DefaultCancellationRules()}
	}
	return &CancellationEvaluator{rules: slices.Clone(rules)}
}

// Evaluate returns the decision of the first matching rule
func (e *CancellationEvaluator) Evaluate(cc *CancellationContext) CancellationResult {
	for _, rule := range e.rules {
		if rule.Applies(cc) {
			return CancellationResult{Context: cc, Cancel: true, Reason: rule.Reason}
		}
	}
	return CancellationResult{Context: cc}
}

// ComputeMany evaluates every context
func (e *CancellationEvaluator) ComputeMany(contexts []*CancellationContext) Evaluation {
	var out Evaluation
	for _, cc := range contexts {
		result := e.Evaluate(cc)
		if result.Cancel {
			out.Cancelled = append(out.Cancelled, result)
			continue
		}
		out.Confirmed = append(out.Confirmed, cc)
	}
	return out
}
