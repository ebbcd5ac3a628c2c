package ir

import "strconv"

// FlattenGlobalInit renders a GlobalVar's Init tree as a flat,
// row-major list of scalar words. It returns nil for the all-zero
// sentinel the builder installs for a fully zero initializer (an
// empty, Def-less Value) — callers distinguish "no words, emit a
// zero-fill directive sized from the type" from "an explicit literal
// zero", which still carries a Name and belongs to a real leaf.
//
// Grounded on printer.go's own initText walk over the same
// constTreeDef/empty-Name shape, exported here so internal/asm's data
// section lowering does not need to reach into this package's
// unexported global-initializer representation.
func FlattenGlobalInit(v *Value) []int {
	if v == nil || (v.Name == "" && v.Def == nil) {
		return nil
	}
	if ct, ok := v.Def.(*constTreeDef); ok {
		var out []int
		for _, e := range ct.elems {
			out = append(out, FlattenGlobalInit(e)...)
		}
		return out
	}
	n, _ := strconv.Atoi(v.Name)
	return []int{n}
}
