package util

import (
	"fmt"
	"slices"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// FilterEnv is the environment filter expressions are evaluated in. It holds
// the JSON field map of an entity (e.g. `lastName`, `marketValue`) plus the
// helper functions below.
type FilterEnv map[string]any

// NewFilterEnv returns the environment for an entity with the given fields.
func NewFilterEnv(kind string, fields map[string]any) FilterEnv {
	env := make(FilterEnv, len(fields)+8)
	for k, v := range fields {
		env[k] = v
	}
	env["kind"] = kind
	env["All"] = func() bool { return true }
	env["None"] = func() bool { return false }
	env["Has"] = func(field string) bool {
		v, ok := fields[field]
		return ok && v != nil
	}
	env["OneOf"] = func(value any, vals ...any) bool {
		return slices.ContainsFunc(vals, func(v any) bool {
			return fmt.Sprint(v) == fmt.Sprint(value)
		})
	}
	env["Contains"] = func(s, substr string) bool {
		return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
	}
	return env
}

// CompileFilter compiles a boolean filter expression such as
//
//	position == "STRIKER" && marketValue > 1e6
//
// Unknown fields evaluate to nil.
func CompileFilter(filter string) (*vm.Program, error) {
	return expr.Compile(filter,
		expr.Env(NewFilterEnv("", nil)),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
}

// RunFilter evaluates a compiled filter against env.
func RunFilter(program *vm.Program, env FilterEnv) (bool, error) {
	out, err := expr.Run(program, env)
	if err != nil {
		return false, err
	}
	pass, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("filter returned %T, expected bool", out)
	}
	return pass, nil
}
