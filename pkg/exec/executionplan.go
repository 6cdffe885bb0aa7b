package exec

// ExecutionPlan ties one compiled Plan per disjunction alternative
// together, advancing through them in order and deduplicating rows that
// more than one alternative can produce.
type ExecutionPlan struct {
	plans   []*Plan
	current int
	seen    map[string]struct{} // nil in proxy mode
}

// NewExecutionPlan builds the top-level executor over plans, one per
// disjunction alternative, in alternative order.
func NewExecutionPlan(plans []*Plan) *ExecutionPlan {
	ep := &ExecutionPlan{plans: plans}
	if len(plans) > 1 {
		ep.seen = make(map[string]struct{})
	}
	return ep
}

// Next returns the next deduplicated, query-ordered row, or false at
// exhaustion. With exactly one alternative it is a transparent forwarder
// of that plan's iterator — no dedup bookkeeping.
func (ep *ExecutionPlan) Next() (Row, bool, error) {
	if len(ep.plans) == 1 {
		return ep.plans[0].Next()
	}

	for ep.current < len(ep.plans) {
		row, ok, err := ep.plans[ep.current].Next()
		if err != nil {
			return nil, false, err
		}
		if !ok {
			ep.current++
			continue
		}
		key := rowKey(row)
		if _, dup := ep.seen[key]; dup {
			continue
		}
		ep.seen[key] = struct{}{}
		return row, true, nil
	}
	return nil, false, nil
}

// Count fully drains the plan, discarding rows.
func (ep *ExecutionPlan) Count() (int, error) {
	n := 0
	for {
		_, ok, err := ep.Next()
		if err != nil {
			return n, err
		}
		if !ok {
			return n, nil
		}
		n++
	}
}
