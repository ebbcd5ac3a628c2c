package ir

import (
	"fmt"
	"strings"
)

// Printer renders a Program as Koopa-style IR text: one `global`
// directive per global variable, one `fun` block per function, each
// basic block labeled with its parameter list and its instructions
// indented underneath.
//
// Grounded on kanso/internal/ir/printer.go's writeIndent/writeLine/
// write string-builder idiom, carried over verbatim and pointed at
// this package's own Program/Function/BasicBlock/Instruction shape.
type Printer struct {
	indent int
	output strings.Builder
}

func NewPrinter() *Printer {
	return &Printer{}
}

// Print renders prog in full.
func Print(prog *Program) string {
	p := NewPrinter()
	p.printProgram(prog)
	return p.output.String()
}

func (p *Printer) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.output.WriteString("  ")
	}
}

func (p *Printer) writeLine(format string, args ...interface{}) {
	p.writeIndent()
	p.output.WriteString(fmt.Sprintf(format, args...))
	p.output.WriteString("\n")
}

func (p *Printer) printProgram(prog *Program) {
	for _, gv := range prog.Globals {
		p.writeLine("global @%s = alloc %s, %s", gv.Name, gv.Type, p.initText(gv.Init))
	}
	if len(prog.Globals) > 0 {
		p.writeLine("")
	}
	for _, f := range prog.Functions {
		p.printFunction(f)
	}
}

func (p *Printer) initText(v *Value) string {
	if v == nil {
		return "zeroinit"
	}
	if ct, ok := v.Def.(*constTreeDef); ok {
		parts := make([]string, len(ct.elems))
		for i, e := range ct.elems {
			parts[i] = p.initText(e)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	if v.Name == "" {
		return "zeroinit"
	}
	return v.Name
}

func (p *Printer) printFunction(f *Function) {
	params := make([]string, len(f.Params))
	for i, prm := range f.Params {
		name := prm.Name
		if prm.Value != nil {
			name = prm.Value.Name
		}
		params[i] = fmt.Sprintf("%s: %s", name, prm.Type)
	}
	ret := ""
	if _, void := f.ReturnType.(UnitType); !void {
		ret = ": " + f.ReturnType.String()
	}

	if f.IsDecl {
		p.writeLine("decl @%s(%s)%s", f.Name, strings.Join(params, ", "), ret)
		return
	}

	p.writeLine("fun @%s(%s)%s {", f.Name, strings.Join(params, ", "), ret)
	p.indent++
	for _, bb := range f.Blocks {
		p.printBlock(bb)
	}
	p.indent--
	p.writeLine("}")
	p.writeLine("")
}

func (p *Printer) printBlock(bb *BasicBlock) {
	if len(bb.Params) == 0 {
		p.writeLine("%s:", bb.Name)
	} else {
		names := make([]string, len(bb.Params))
		for i, prm := range bb.Params {
			names[i] = fmt.Sprintf("%s: %s", prm.Name, prm.Type)
		}
		p.writeLine("%s(%s):", bb.Name, strings.Join(names, ", "))
	}
	p.indent++
	for _, inst := range bb.Insts {
		p.writeLine("%s", inst.String())
	}
	p.indent--
}
