// Package testutil provides test fixture generators for flow graph
// topologies, plus assertion helpers shared across packages. All generators
// produce deterministic output for reproducible tests.
package testutil

import (
	"fmt"
	"math/rand"

	"github.com/vanderheijden86/quizflow/pkg/flow"
	"github.com/vanderheijden86/quizflow/pkg/model"
)

// GeneratorConfig controls flow generation.
type GeneratorConfig struct {
	Seed     int64  // Random seed for Random (0 = 42)
	Topic    string // Topic assigned to the root question (default "TEST")
	IDPrefix string // Prefix for node IDs (default "n")
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:     42,
		Topic:    "TEST",
		IDPrefix: "n",
	}
}

// Generator creates flow fixtures with various topologies.
type Generator struct {
	cfg  GeneratorConfig
	next int
}

// NewGenerator creates a generator with the given config.
func NewGenerator(cfg GeneratorConfig) *Generator {
	if cfg.Topic == "" {
		cfg.Topic = "TEST"
	}
	if cfg.IDPrefix == "" {
		cfg.IDPrefix = "n"
	}
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
	return &Generator{cfg: cfg}
}

func (g *Generator) id() string {
	g.next++
	return fmt.Sprintf("%s%03d", g.cfg.IDPrefix, g.next)
}

func variants(n int) []model.Variant {
	vs := make([]model.Variant, n)
	for i := range vs {
		vs[i] = model.Variant{Text: fmt.Sprintf("Option %d", i+1), Score: i + 1}
	}
	return vs
}

// Linear builds a chain of depth question/answer pairs ending in an outcome:
//
//	Q -> A -> Q -> A -> ... -> E
//
// All answers use single mode. Must panics on internal build errors, so it
// is safe to call without a *testing.T.
func (g *Generator) Linear(depth int) *flow.Store {
	s := flow.NewStore(nil)

	q := model.NewQuestion(g.id(), "Question 1", true, g.cfg.Topic)
	mustAdd(s, q)
	prev := q.ID

	for i := 0; i < depth; i++ {
		a := model.NewAnswer(g.id(), model.ModeSingle, variants(2)...)
		mustAdd(s, a)
		mustConnect(s, prev, a.ID, model.HandleDefault)

		if i == depth-1 {
			e := model.NewOutcome(g.id(), "Recommendation")
			mustAdd(s, e)
			mustConnect(s, a.ID, e.ID, model.HandleDefault)
			break
		}

		nq := model.NewQuestion(g.id(), fmt.Sprintf("Question %d", i+2), false, "")
		mustAdd(s, nq)
		mustConnect(s, a.ID, nq.ID, model.HandleDefault)
		prev = nq.ID
	}

	return s
}

// Branching builds a root question whose answer fans out in multiple mode:
// one outcome per variant.
func (g *Generator) Branching(fanout int) *flow.Store {
	s := flow.NewStore(nil)

	q := model.NewQuestion(g.id(), "Question 1", true, g.cfg.Topic)
	mustAdd(s, q)

	a := model.NewAnswer(g.id(), model.ModeMultiple, variants(fanout)...)
	mustAdd(s, a)
	mustConnect(s, q.ID, a.ID, model.HandleDefault)

	for i := 0; i < fanout; i++ {
		e := model.NewOutcome(g.id(), fmt.Sprintf("Recommendation %d", i+1))
		mustAdd(s, e)
		mustConnect(s, a.ID, e.ID, model.VariantHandle(i))
	}

	return s
}

// Combination builds a root question whose answer is in combinations mode,
// with one outcome per non-empty variant subset (2^n - 1 outcomes).
func (g *Generator) Combination(nvariants int) *flow.Store {
	s := flow.NewStore(nil)

	q := model.NewQuestion(g.id(), "Question 1", true, g.cfg.Topic)
	mustAdd(s, q)

	vs := variants(nvariants)
	a := model.NewAnswer(g.id(), model.ModeCombinations, vs...)
	mustAdd(s, a)
	mustConnect(s, q.ID, a.ID, model.HandleDefault)

	for _, combo := range model.Combinations(vs) {
		e := model.NewOutcome(g.id(), "Recommendation for "+combo.Label)
		mustAdd(s, e)
		mustConnect(s, a.ID, e.ID, combo.Handle())
	}

	return s
}

// Random grows a graph of roughly size nodes by attempting random legal
// operations. Every connect goes through store validation, so the result is
// always a valid flow. Deterministic for a fixed seed.
func (g *Generator) Random(size int) *flow.Store {
	r := rand.New(rand.NewSource(g.cfg.Seed))
	s := flow.NewStore(nil)

	q := model.NewQuestion(g.id(), "Question 1", true, g.cfg.Topic)
	mustAdd(s, q)

	for i := 1; i < size; i++ {
		var n *model.Node
		switch r.Intn(3) {
		case 0:
			n = model.NewQuestion(g.id(), fmt.Sprintf("Question %d", i+1), false, "")
		case 1:
			mode := []model.BranchMode{model.ModeSingle, model.ModeMultiple}[r.Intn(2)]
			n = model.NewAnswer(g.id(), mode, variants(2+r.Intn(3))...)
		default:
			n = model.NewOutcome(g.id(), fmt.Sprintf("Recommendation %d", i+1))
		}
		mustAdd(s, n)

		// Try to wire the new node under a random existing source.
		nodes := s.Nodes()
		for attempt := 0; attempt < 8; attempt++ {
			src := nodes[r.Intn(len(nodes))]
			for _, h := range candidateHandles(src, r) {
				if s.CanConnect(src.ID, n.ID, h) == nil {
					mustConnect(s, src.ID, n.ID, h)
					attempt = 8
					break
				}
			}
		}
	}

	return s
}

func candidateHandles(src *model.Node, r *rand.Rand) []string {
	if src.Type != model.NodeAnswer {
		return []string{model.HandleDefault}
	}
	switch src.Answer.Mode {
	case model.ModeMultiple:
		return []string{model.VariantHandle(r.Intn(len(src.Answer.Variants)))}
	case model.ModeCombinations:
		combos := model.Combinations(src.Answer.Variants)
		return []string{combos[r.Intn(len(combos))].Handle()}
	default:
		return []string{model.HandleDefault}
	}
}

func mustAdd(s *flow.Store, n *model.Node) {
	if err := s.AddNode(n); err != nil {
		panic(fmt.Sprintf("testutil: add node %s: %v", n.ID, err))
	}
}

func mustConnect(s *flow.Store, source, target, handle string) {
	if _, _, err := s.Connect(source, target, handle); err != nil {
		panic(fmt.Sprintf("testutil: connect %s -[%s]-> %s: %v", source, handle, target, err))
	}
}
