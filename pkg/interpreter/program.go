package interpreter

import (
	"fmt"

	"minilisp/interpreter-go/pkg/driver"
	"minilisp/interpreter-go/pkg/runtime"
)

// EvaluateProgram executes the program's setup modules and then its entry, all
// sharing this interpreter's globals, registry, and memo cache. Evaluation
// stops at the first failing module.
func (i *Interpreter) EvaluateProgram(program *driver.Program) (runtime.Value, *runtime.Environment, error) {
	if program == nil {
		return nil, nil, fmt.Errorf("interpreter: program is nil")
	}
	if program.Entry == nil || program.Entry.AST == nil {
		return nil, nil, fmt.Errorf("interpreter: program missing entry module")
	}

	var entryValue runtime.Value
	for _, mod := range program.Modules() {
		if mod == nil || mod.AST == nil {
			continue
		}
		i.tracef("module %s", mod.Path)
		val, _, err := i.EvaluateModule(mod.AST)
		if err != nil {
			return nil, i.global, fmt.Errorf("interpreter: evaluation error in %s: %w", mod.Path, err)
		}
		if mod == program.Entry {
			entryValue = val
		}
	}
	return entryValue, i.global, nil
}

// OptionsFor derives interpreter options from a program's run options.
func OptionsFor(program *driver.Program) Options {
	if program == nil {
		return Options{}
	}
	return Options{DisableMemo: !program.Options.Memoize}
}
