// Package queryjson parses the JSON query schema into a query.Disjunction,
// dispatching node annotation search vs. token search vs.
// AnyToken/AnyNode, and edge/operator construction from a JoinSpec.
package queryjson

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/annisql/graphannis/pkg/operator"
	"github.com/annisql/graphannis/pkg/query"
)

// ErrMalformedQuery is returned for any query JSON that doesn't match the
// schema below, or that references an undeclared node id.
var ErrMalformedQuery = fmt.Errorf("queryjson: malformed query")

type queryDoc struct {
	Alternatives []conjunctionDoc `json:"alternatives"`
}

type conjunctionDoc struct {
	Nodes map[string]nodeDoc `json:"nodes"`
	Joins []joinDoc          `json:"joins"`
}

type nodeDoc struct {
	SpannedText     *string     `json:"spannedText"`
	Token           bool        `json:"token"`
	NodeAnnotations []annoMatch `json:"nodeAnnotations"`
}

type annoMatch struct {
	Namespace    *string `json:"namespace"`
	Name         string  `json:"name"`
	Value        *string `json:"value"`
	TextMatching string  `json:"textMatching"` // "EXACT_EQUAL" or "REGEXP_EQUAL"
}

type joinDoc struct {
	Op               string  `json:"op"`
	Left             string  `json:"left"`
	Right            string  `json:"right"`
	MinDistance      int     `json:"minDistance"`
	MaxDistance      int     `json:"maxDistance"`
	SegmentationName *string `json:"segmentation-name"`
	Layer            string  `json:"layer"`
	Name             string  `json:"name"`
}

// Parse decodes a query JSON document into a query.Disjunction.
func Parse(data []byte) (*query.Disjunction, error) {
	var doc queryDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedQuery, err)
	}
	if len(doc.Alternatives) == 0 {
		return nil, fmt.Errorf("%w: no alternatives", ErrMalformedQuery)
	}

	alternatives := make([]*query.Conjunction, len(doc.Alternatives))
	for i, alt := range doc.Alternatives {
		c, err := buildConjunction(alt)
		if err != nil {
			return nil, fmt.Errorf("%w: alternative %d: %v", ErrMalformedQuery, i, err)
		}
		alternatives[i] = c
	}
	return query.NewDisjunction(alternatives...), nil
}

// buildConjunction lowers one {nodes, joins} alternative. A node id with
// more than one annotation atom (a token-text match plus annotation
// matches, or several annotation matches) becomes several search
// positions joined back together with operator.IdentitySpec — the
// degenerate same-node join the operator library carries for exactly this
// purpose, rather than a bespoke multi-predicate NodeSearchSpec variant.
func buildConjunction(doc conjunctionDoc) (*query.Conjunction, error) {
	c := query.NewConjunction()

	ids := make([]string, 0, len(doc.Nodes))
	for id := range doc.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	primaryPos := make(map[string]int, len(ids))
	for _, id := range ids {
		atoms, err := nodeAtoms(doc.Nodes[id])
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", id, err)
		}
		primary := c.AddNode(id, atoms[0])
		primaryPos[id] = primary
		for _, atom := range atoms[1:] {
			pos := c.AddNode(id, atom)
			c.AddOperator(operator.IdentitySpec{}, primary, pos)
		}
	}

	for _, j := range doc.Joins {
		lhsPos, ok := primaryPos[j.Left]
		if !ok {
			return nil, fmt.Errorf("join references unknown node %q", j.Left)
		}
		rhsPos, ok := primaryPos[j.Right]
		if !ok {
			return nil, fmt.Errorf("join references unknown node %q", j.Right)
		}
		spec, err := operatorSpec(j)
		if err != nil {
			return nil, err
		}
		c.AddOperator(spec, lhsPos, rhsPos)
	}

	return c, nil
}

// nodeAtoms expands one NodeSpec into the ordered list of NodeSearchSpec
// atoms it represents: always at least one.
func nodeAtoms(n nodeDoc) ([]query.NodeSearchSpec, error) {
	var atoms []query.NodeSearchSpec

	if n.SpannedText != nil {
		// An explicit token:true search restricts to leaf tokens (no
		// Coverage fan-in besides itself); a plain spannedText search
		// without token:true does not.
		atoms = append(atoms, query.ExactTokenValue{Text: *n.SpannedText, LeafsOnly: n.Token})
	}

	for _, a := range n.NodeAnnotations {
		spec, err := annoSpec(a)
		if err != nil {
			return nil, err
		}
		atoms = append(atoms, spec)
	}

	if len(atoms) == 0 {
		if n.Token {
			atoms = append(atoms, query.AnyToken{})
		} else {
			atoms = append(atoms, query.AnyNode{})
		}
	}
	return atoms, nil
}

func annoSpec(a annoMatch) (query.NodeSearchSpec, error) {
	switch a.TextMatching {
	case "", "EXACT_EQUAL":
		return query.ExactValue{Ns: a.Namespace, Name: a.Name, Value: a.Value}, nil
	case "REGEXP_EQUAL":
		if a.Value == nil {
			return nil, fmt.Errorf("regex annotation match on %q requires a value", a.Name)
		}
		return query.RegexValue{Ns: a.Namespace, Name: a.Name, Pattern: *a.Value}, nil
	default:
		return nil, fmt.Errorf("unknown textMatching %q", a.TextMatching)
	}
}

// operatorSpec lowers a JoinSpec to a concrete OperatorSpec. Distance
// bounds default to 1 (immediate adjacency/dominance) when the document
// omits them, matching the ANNIS QueryLanguage default for an unqualified
// "." / ">" operator.
func operatorSpec(j joinDoc) (query.OperatorSpec, error) {
	minDist, maxDist := j.MinDistance, j.MaxDistance
	if minDist == 0 && maxDist == 0 {
		minDist, maxDist = 1, 1
	}

	switch j.Op {
	case "precedence":
		return operator.PrecedenceSpec{Segmentation: j.SegmentationName, MinDist: minDist, MaxDist: maxDist}, nil
	case "dominance":
		return operator.DominanceSpec{Layer: j.Layer, Name: j.Name, MinDist: minDist, MaxDist: maxDist}, nil
	case "identical_node", "identity":
		return operator.IdentitySpec{}, nil
	default:
		return nil, fmt.Errorf("unknown join op %q", j.Op)
	}
}
