package ir

// Pass is one optimizer pass: it mutates f in place and reports
// whether it changed anything.
//
// Grounded on kanso/internal/ir/optimizations.go's OptimizationPass
// interface (Name/Apply/Description) — the same shape, specialized to
// a single Apply-equivalent method since this IR's passes need no
// separate human-facing description beyond their Go doc comment.
type Pass struct {
	Name  string
	Apply func(f *Function) bool
}

// Pipeline is the fixed pass order spec.md §2/§5 mandates. Each pass
// runs to its own fixed point before the next one starts; the pipeline
// itself runs once through the list, not in an outer loop — a later
// pass re-exposing an earlier pass's opportunity (RemoveEmptyBB
// creating a new unreachable block, say) is accepted as spec.md
// describes it, not chased with a further outer iteration.
var Pipeline = []Pass{
	{Name: "RemoveUnreachable", Apply: RemoveUnreachable},
	{Name: "SsaBuilder", Apply: SsaBuilder},
	{Name: "SCCP", Apply: SCCP},
	{Name: "CSE", Apply: CSE},
	{Name: "RemoveTrivialArgs", Apply: RemoveTrivialArgs},
	{Name: "RemoveEmptyBB", Apply: RemoveEmptyBB},
}

// Optimize runs the fixed pass pipeline over every defined function in
// prog (declarations have no body to optimize).
func Optimize(prog *Program) {
	for _, f := range prog.Functions {
		if f.IsDecl {
			continue
		}
		OptimizeFunction(f)
	}
}

// OptimizeFunction runs the fixed pass pipeline over a single function,
// each pass to its own fixed point, in the order Pipeline lists.
func OptimizeFunction(f *Function) {
	for _, pass := range Pipeline {
		for pass.Apply(f) {
		}
	}
}
