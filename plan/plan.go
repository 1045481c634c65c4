package plan

import (
	"fmt"
	"strings"

	"github.com/go-sif/sifplan/errors"
)

// A Plan is a frozen tree of Nodes, in which every Node has an id. Ids are assigned in
// post-order, so that every Node's id is greater than those of its descendants.
type Plan struct {
	root   Node
	ids    map[Node]int
	nodes  []Node
	stages []*Stage
}

// ShuffleSpec describes the shuffle at the boundary between two Stages: the bucket
// metadata a scheduler needs to route sub-Partitions from every instance of the
// Fanout to the ReduceMerge collector of each bucket
type ShuffleSpec struct {
	Kind       Kind // the redistribution policy of the Fanout
	Fanout     *FanoutNode
	FanoutID   int
	Reduce     *ReduceMergeNode
	ReduceID   int
	NumBuckets int
}

// A Stage is a maximal subtree of a Plan which contains no shuffle. A Stage either ends
// in a FanoutNode, in which case its output is a shuffle, or is rooted at the root of
// the Plan.
type Stage struct {
	ID      int
	Root    Node
	Shuffle *ShuffleSpec // nil for the final Stage
	Inputs  []int        // the ids of Stages whose shuffles are received by this Stage
}

// New validates and freezes a tree of Nodes. A Node may only appear once within the
// tree, and every FanoutNode must be the child of a ReduceMergeNode.
func New(root Node) (*Plan, error) {
	if root == nil {
		return nil, &errors.ConfigurationError{Op: "plan", Reason: "a root node is required"}
	}
	p := &Plan{root: root, ids: make(map[Node]int)}
	if err := p.assign(root, nil); err != nil {
		return nil, err
	}
	p.buildStage(root, nil)
	return p, nil
}

func (p *Plan) assign(n Node, parent Node) error {
	if _, seen := p.ids[n]; seen {
		return &errors.ConfigurationError{Op: "plan", Reason: fmt.Sprintf("node %s appears more than once", n)}
	}
	p.ids[n] = -1
	if n.Kind().IsFanout() {
		if _, ok := parent.(*ReduceMergeNode); !ok {
			return &errors.ConfigurationError{Op: "plan", Reason: fmt.Sprintf("%s must be received by a reduce_merge", n)}
		}
	}
	for _, c := range n.Children() {
		if c == nil {
			return &errors.ConfigurationError{Op: "plan", Reason: fmt.Sprintf("%s has a nil child", n)}
		}
		if err := p.assign(c, n); err != nil {
			return err
		}
	}
	p.ids[n] = len(p.nodes)
	p.nodes = append(p.nodes, n)
	return nil
}

// buildStage appends the Stage rooted at root, after every Stage it receives from
func (p *Plan) buildStage(root Node, shuffle *ShuffleSpec) int {
	var inputs []int
	var walk func(n Node)
	walk = func(n Node) {
		if rm, ok := n.(*ReduceMergeNode); ok {
			f := rm.Fanout()
			inputs = append(inputs, p.buildStage(f, &ShuffleSpec{
				Kind:       f.Kind(),
				Fanout:     f,
				FanoutID:   p.ids[f],
				Reduce:     rm,
				ReduceID:   p.ids[rm],
				NumBuckets: f.NumBuckets(),
			}))
			return
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	if shuffle != nil {
		// the fanout itself belongs to this stage, its child begins the walk
		walk(shuffle.Fanout.Child())
	} else {
		walk(root)
	}
	s := &Stage{ID: len(p.stages), Root: root, Shuffle: shuffle, Inputs: inputs}
	p.stages = append(p.stages, s)
	return s.ID
}

// Root returns the root Node of this Plan
func (p *Plan) Root() Node {
	return p.root
}

// ID returns the id of a Node within this Plan, or false if it is not part of this Plan
func (p *Plan) ID(n Node) (int, bool) {
	id, ok := p.ids[n]
	return id, ok
}

// Node returns the Node with the given id
func (p *Plan) Node(id int) (Node, bool) {
	if id < 0 || id >= len(p.nodes) {
		return nil, false
	}
	return p.nodes[id], true
}

// Nodes returns every Node in this Plan, in id order
func (p *Plan) Nodes() []Node {
	nodes := make([]Node, len(p.nodes))
	copy(nodes, p.nodes)
	return nodes
}

// Stages returns the Stages of this Plan in dependency order: every Stage appears
// after the Stages it receives from, and the final Stage is last
func (p *Plan) Stages() []*Stage {
	stages := make([]*Stage, len(p.stages))
	copy(stages, p.stages)
	return stages
}

// Explain renders a Plan as an indented tree followed by its Stages
func Explain(p *Plan) string {
	var sb strings.Builder
	var render func(n Node, depth int)
	render = func(n Node, depth int) {
		fmt.Fprintf(&sb, "%s#%d %s -> %s\n", strings.Repeat("  ", depth), p.ids[n], n, n.Schema())
		for _, c := range n.Children() {
			render(c, depth+1)
		}
	}
	render(p.root, 0)
	sb.WriteString("stages:\n")
	for _, s := range p.stages {
		fmt.Fprintf(&sb, "  stage %d: root #%d", s.ID, p.ids[s.Root])
		if len(s.Inputs) > 0 {
			fmt.Fprintf(&sb, " inputs=%v", s.Inputs)
		}
		if s.Shuffle != nil {
			fmt.Fprintf(&sb, " shuffle=%s #%d -> #%d buckets=%d", s.Shuffle.Kind, s.Shuffle.FanoutID, s.Shuffle.ReduceID, s.Shuffle.NumBuckets)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
