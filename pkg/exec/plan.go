package exec

import "fmt"

// Desc is one plan's column-remapping and cost metadata: positions[i]
// names which original query variable landed at internal row column i, so
// the executor can present rows in query order.
type Desc struct {
	// Positions[internal column] = original variable index.
	Positions []int
	// Cost is the summed cost estimate of every leaf/join in the plan,
	// informational only (not consumed by execution).
	Cost int
}

// Reorder rebuilds row so that output column i holds the match for
// original variable i, using d.Positions to invert the internal column
// order the join tree produced.
func (d Desc) Reorder(row Row) Row {
	out := make(Row, len(d.Positions))
	for internalCol, variablePos := range d.Positions {
		out[variablePos] = row[internalCol]
	}
	return out
}

// Plan is one conjunction's compiled execution tree: a root node plus the
// Desc needed to present its rows in query order.
type Plan struct {
	Root ExecutionNode
	Desc Desc
}

// Next pulls the next reordered row from the plan, or false at exhaustion.
func (p *Plan) Next() (Row, bool, error) {
	row, ok, err := p.Root.Next()
	if err != nil || !ok {
		return nil, ok, err
	}
	if len(row) != len(p.Desc.Positions) {
		return nil, false, fmt.Errorf("exec: plan produced a %d-column row, expected %d", len(row), len(p.Desc.Positions))
	}
	return p.Desc.Reorder(row), true, nil
}

// Count fully drains the plan, discarding rows.
func (p *Plan) Count() (int, error) {
	n := 0
	for {
		_, ok, err := p.Next()
		if err != nil {
			return n, err
		}
		if !ok {
			return n, nil
		}
		n++
	}
}

// rowKey computes the deduplication key: the sequence of (node_id,
// anno_key) pairs across the row, which two rows from different
// alternatives can share even if their MatchedValue
// differs by alternative-specific search path.
func rowKey(row Row) string {
	key := make([]byte, 0, len(row)*24)
	for _, m := range row {
		key = appendInt64(key, int64(m.Node))
		key = appendInt64(key, int64(m.Anno.Key.Ns))
		key = appendInt64(key, int64(m.Anno.Key.Name))
	}
	return string(key)
}

func appendInt64(b []byte, n int64) []byte {
	return append(b,
		byte(n>>56), byte(n>>48), byte(n>>40), byte(n>>32),
		byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
}
