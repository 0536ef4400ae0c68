// Package optimizer implements the rule-based logical plan rewriter: a
// small, fixed-point set of LIMIT-related simplifications. It is
// deliberately cost-unaware, matching the spec's scope (no statistics, no
// join reordering).
package optimizer

import (
	"github.com/tuannm99/novadb/internal/plan"
)

// maxPasses bounds the fixed-point loop so a cyclic rewrite can't hang.
const maxPasses = 3

// Optimize repeatedly rewrites root until no rule changes anything, or
// maxPasses is reached.
func Optimize(root plan.Node) (plan.Node, error) {
	for i := 0; i < maxPasses; i++ {
		next, changed, err := rewrite(root)
		if err != nil {
			return nil, err
		}
		root = next
		if !changed {
			break
		}
	}
	return root, nil
}

// rewrite recurses into node's children first, then applies the LIMIT
// rules at node itself. Traversal order doesn't affect the fixed point
// the rules converge to (capped at maxPasses global iterations either
// way), only how many rules fire within a single pass.
func rewrite(node plan.Node) (plan.Node, bool, error) {
	changed := false

	switch n := node.(type) {
	case *plan.Filter:
		if c, err := descend(&n.Input); err != nil {
			return nil, false, err
		} else {
			changed = changed || c
		}
	case *plan.Project:
		if c, err := descend(&n.Input); err != nil {
			return nil, false, err
		} else {
			changed = changed || c
		}
	case *plan.Sort:
		if c, err := descend(&n.Input); err != nil {
			return nil, false, err
		} else {
			changed = changed || c
		}
	case *plan.Limit:
		if c, err := descend(&n.Input); err != nil {
			return nil, false, err
		} else {
			changed = changed || c
		}
	case *plan.Join:
		if c, err := descend(&n.Left); err != nil {
			return nil, false, err
		} else {
			changed = changed || c
		}
		if c, err := descend(&n.Right); err != nil {
			return nil, false, err
		} else {
			changed = changed || c
		}
	case *plan.Insert:
		if c, err := descend(&n.Input); err != nil {
			return nil, false, err
		} else {
			changed = changed || c
		}
	case *plan.Update:
		if c, err := descend(&n.Input); err != nil {
			return nil, false, err
		} else {
			changed = changed || c
		}
	case *plan.Delete:
		if c, err := descend(&n.Input); err != nil {
			return nil, false, err
		} else {
			changed = changed || c
		}
	default:
		// leaf: CreateTable, CreateIndex, Values, EmptyRelation, TableScan
	}

	node, c := applyLimitRules(node)
	return node, changed || c, nil
}

// descend rewrites *slot in place, reporting whether anything changed.
func descend(slot *plan.Node) (bool, error) {
	next, changed, err := rewrite(*slot)
	if err != nil {
		return false, err
	}
	*slot = next
	return changed, nil
}

// applyLimitRules applies EliminateLimit, MergeLimit, and PushDownLimit at
// node (node itself, not its subtree — the caller already recursed).
func applyLimitRules(node plan.Node) (plan.Node, bool) {
	lim, ok := node.(*plan.Limit)
	if !ok {
		return node, false
	}

	// EliminateLimit: Limit{limit: 0, ..} -> EmptyRelation.
	if lim.Limit != nil && *lim.Limit == 0 {
		return plan.NewEmptyRelation(lim.Input.Schema(), 0), true
	}
	// EliminateLimit: Limit{limit: None, offset: 0, input} -> input.
	if lim.Limit == nil && lim.Offset == 0 {
		return lim.Input, true
	}

	// MergeLimit: Limit{lim_p, off_p, Limit{lim_c, off_c, x}} -> one Limit.
	if child, ok := lim.Input.(*plan.Limit); ok {
		offset := lim.Offset + child.Offset
		limit := mergeLimitBound(lim.Limit, child.Limit, lim.Offset)
		return plan.NewLimit(limit, offset, child.Input), true
	}

	// PushDownLimit: Limit{limit: n, offset: k, Sort{..}} gives Sort a
	// limit bound of n+k so it can early-terminate its in-memory sort.
	if sortNode, ok := lim.Input.(*plan.Sort); ok && lim.Limit != nil {
		bound := int(*lim.Limit) + int(lim.Offset)
		if sortNode.Limit == nil || bound < *sortNode.Limit {
			sortNode.Limit = &bound
			return lim, true
		}
	}

	return lim, false
}

// mergeLimitBound implements the spec's MergeLimit formula:
//
//	(Some(a), Some(b)) -> Some(min(a, b.saturating_sub(off_p)))
//	(Some(a), None)    -> Some(a)
//	(None, Some(b))    -> Some(b.saturating_sub(off_p))
//	(None, None)       -> None
func mergeLimitBound(parentLimit, childLimit *int64, parentOffset int64) *int64 {
	saturatingSub := func(b, offP int64) int64 {
		if b < offP {
			return 0
		}
		return b - offP
	}
	switch {
	case parentLimit != nil && childLimit != nil:
		b := saturatingSub(*childLimit, parentOffset)
		v := *parentLimit
		if b < v {
			v = b
		}
		return &v
	case parentLimit != nil:
		v := *parentLimit
		return &v
	case childLimit != nil:
		v := saturatingSub(*childLimit, parentOffset)
		return &v
	default:
		return nil
	}
}
