package cel

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	celgo "github.com/google/cel-go/cel"

	"github.com/ezachrisen/dmn/evaluator"
	"github.com/ezachrisen/dmn/value"
)

// LanguageID is the expression language name under which graphs register
// the compiler.
const LanguageID = "cel"

// DefaultCostLimit bounds the cost of a single evaluation.
const DefaultCostLimit = 1_000_000

// Compiler compiles CEL literal expressions. It is safe for concurrent use.
type Compiler struct {
	costLimit uint64
	functions map[string]BinaryFunction
}

// Option configures a Compiler.
type Option func(c *Compiler)

// CostLimit sets the maximum cost of one evaluation. 0 disables the limit.
func CostLimit(n uint64) Option {
	return func(c *Compiler) {
		c.costLimit = n
	}
}

// WithFunction makes f callable from expressions as name(a, b).
func WithFunction(name string, f BinaryFunction) Option {
	return func(c *Compiler) {
		c.functions[name] = f
	}
}

// NewCompiler returns a compiler with the given options.
func NewCompiler(opts ...Option) *Compiler {
	c := &Compiler{
		costLimit: DefaultCostLimit,
		functions: map[string]BinaryFunction{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var reserved = map[string]bool{
	"true": true, "false": true, "null": true, "in": true, "as": true, "break": true,
	"const": true, "continue": true, "else": true, "for": true, "function": true, "if": true,
	"import": true, "let": true, "loop": true, "package": true, "namespace": true,
	"return": true, "var": true, "void": true, "while": true,
}

// declarable filters names down to valid CEL identifiers.
func declarable(names []string) []string {
	var out []string
	for _, n := range names {
		if identifier.MatchString(n) && !reserved[n] && !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}

// Compile parses and checks text, declaring every name in names.
func (c *Compiler) Compile(text string, names []string) (evaluator.Program, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty expression")
	}

	declared := declarable(names)
	opts := []celgo.EnvOption{celgo.CrossTypeNumericComparisons(true)}
	for _, n := range declared {
		opts = append(opts, celgo.Variable(n, celgo.DynType))
	}
	for name, f := range c.functions {
		opt, err := binaryFunction(name, f)
		if err != nil {
			return nil, err
		}
		opts = append(opts, opt)
	}

	env, err := celgo.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating CEL environment: %w", err)
	}

	// Parse and type-check the expression against the declarations
	ast, iss := env.Compile(text)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compiling %q: %w", text, iss.Err())
	}

	var progOpts []celgo.ProgramOption
	if c.costLimit > 0 {
		progOpts = append(progOpts, celgo.CostLimit(c.costLimit))
	}
	prg, err := env.Program(ast, progOpts...)
	if err != nil {
		return nil, fmt.Errorf("generating program for %q: %w", text, err)
	}

	return &program{
		text:      text,
		prg:       prg,
		refs:      references(ast, declared),
		costLimit: c.costLimit,
	}, nil
}

// references lists the declared names the checked expression reads, in
// declaration order.
func references(ast *celgo.Ast, declared []string) []string {
	used := map[string]bool{}
	for _, ref := range ast.NativeRep().ReferenceMap() {
		if ref.Name != "" && len(ref.OverloadIDs) == 0 {
			used[ref.Name] = true
		}
	}
	var out []string
	for _, n := range declared {
		if used[n] {
			out = append(out, n)
		}
	}
	return out
}

type program struct {
	text      string
	prg       celgo.Program
	refs      []string
	costLimit uint64
}

// Eval evaluates the expression. Only the referenced names are converted
// and passed to CEL.
func (p *program) Eval(ctx *value.Context) (value.Value, error) {
	data := make(map[string]any, len(p.refs))
	for _, n := range p.refs {
		v, ok := ctx.Get(n)
		if !ok {
			return value.Null(), fmt.Errorf("evaluating %q: undefined variable %q", p.text, n)
		}
		data[n] = toCEL(v)
	}

	out, _, err := p.prg.Eval(data)
	if err != nil {
		if strings.Contains(err.Error(), "cost limit exceeded") {
			return value.Null(), &evaluator.ResourceLimitError{Resource: "cel cost", Limit: int64(p.costLimit)}
		}
		return value.Null(), fmt.Errorf("evaluating %q: %w", p.text, err)
	}
	v, err := fromCEL(out)
	if err != nil {
		return value.Null(), fmt.Errorf("evaluating %q: %w", p.text, err)
	}
	return v, nil
}

func (p *program) References() []string {
	return slices.Clone(p.refs)
}
