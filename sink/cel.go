package sink

import (
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"

	"github.com/philipp01105/lumber/core"
)

// CELFilter matches messages against a compiled CEL expression.
// The expression sees the variables level, flag, context, line, ts_ms
// (int), file, file_name, func_name, message (string) and tag (dyn).
// An evaluation error counts as no match.
type CELFilter struct {
	expr string
	prog cel.Program
}

// NewCELFilter compiles expr. The expression must produce a bool.
func NewCELFilter(expr string) (*CELFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, errors.New("empty filter expression")
	}
	env, err := cel.NewEnv(
		cel.Variable("level", cel.IntType),
		cel.Variable("flag", cel.IntType),
		cel.Variable("context", cel.IntType),
		cel.Variable("line", cel.IntType),
		cel.Variable("ts_ms", cel.IntType),
		cel.Variable("file", cel.StringType),
		cel.Variable("file_name", cel.StringType),
		cel.Variable("func_name", cel.StringType),
		cel.Variable("message", cel.StringType),
		cel.Variable("tag", cel.DynType),
	)
	if err != nil {
		return nil, errors.Wrap(err, "cel environment")
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, errors.Wrapf(iss.Err(), "compile %q", expr)
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, errors.Errorf("filter %q must evaluate to bool, got %s", expr, ast.OutputType())
	}
	prog, err := env.Program(ast)
	if err != nil {
		return nil, errors.Wrapf(err, "program %q", expr)
	}
	return &CELFilter{expr: expr, prog: prog}, nil
}

// String returns the source expression
func (f *CELFilter) String() string {
	return f.expr
}

// Match evaluates the expression against msg
func (f *CELFilter) Match(msg *core.Message) bool {
	out, _, err := f.prog.Eval(map[string]any{
		"level":     int64(msg.Level()),
		"flag":      int64(msg.Flag()),
		"context":   int64(msg.Context()),
		"line":      int64(msg.Line()),
		"ts_ms":     msg.Timestamp().UnixMilli(),
		"file":      msg.File(),
		"file_name": msg.FileName(),
		"func_name": msg.Function(),
		"message":   msg.Text(),
		"tag":       msg.Tag(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
