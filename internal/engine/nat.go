package engine

import "asa-config-analyzer/internal/model"

// Classify assigns the directional category of a NAT rule from its
// real/mapped address pairs. Comparison is plain string equality of the
// tokens as written. Object NAT is a style tag, not a computed category,
// and bypasses the table entirely.
func Classify(rule model.NatRule) model.NatCategory {
	if rule.Style == model.StyleObjectNat {
		return model.CategoryObjectNat
	}
	srcSame := rule.RealSource == rule.MappedSource
	dstSame := rule.RealDest == rule.MappedDest
	switch {
	case srcSame && dstSame:
		return model.CategoryIdentity
	case !srcSame && dstSame:
		return model.CategorySourceNat
	case srcSame && !dstSame:
		return model.CategoryDestNat
	default:
		return model.CategoryTwiceNat
	}
}

// ClassifyAll returns a copy of rules with Category filled in. The input
// slice is left untouched.
func ClassifyAll(rules []model.NatRule) []model.NatRule {
	out := make([]model.NatRule, len(rules))
	for i, rule := range rules {
		rule.Category = Classify(rule)
		out[i] = rule
	}
	return out
}
