// Package dmn evaluates decision models: graphs of decisions, the input data
// they read, and the reusable business knowledge models they invoke.
//
// Typical use is as follows:
//
//  1. Create a graph with NewGraph
//  2. Add input data, decisions and business knowledge models with AddNode
//  3. Connect them with requirements (AddInformationRequirement, AddKnowledgeRequirement)
//  4. Validate the graph; a valid graph is sealed and can no longer change
//  5. Create an engine and evaluate the graph against a set of input values
//  6. Inspect the results
//
// A decision's logic is a decision table (package table) or a literal
// expression. Expressions in tables and literal expressions are written in
// a small expression language (package feel); literal expressions may also
// be written in CEL when the graph is created with the cel package's
// compiler.
//
// # Graph Ownership and Modification
//
// A sealed graph is read-only and safe to evaluate from many goroutines.
// To change a graph, Clone it, change the copy and validate it again.
// The Vault type does this for you: it holds the current graph, applies
// changes to a copy and swaps the copy in only when it is valid. Evaluations
// running against the previous graph finish undisturbed.
//
// # Evaluation
//
// Evaluating a set of target decisions computes exactly the decisions they
// depend on, each once, in dependency order. A business knowledge model is
// evaluated each time it is invoked, and sees nothing but the arguments it
// was passed (and the results of the models it in turn invokes).
//
// Errors are typed; use errors.As to inspect *MissingInputError,
// *NodeError, *CycleError, ValidationErrors or *ResourceLimitError, and the
// errors of the table and feel packages they wrap.
package dmn
