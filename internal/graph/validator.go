package graph

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/warpmetrics/warp-coder/internal/names"
	warperrors "github.com/warpmetrics/warp-coder/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	actNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("act_name", func(fl validator.FieldLevel) bool {
			return actNamePattern.MatchString(fl.Field().String())
		})

		validateInst = v
	})

	return validateInst
}

// Compile validates a parsed workflow document and produces the in-memory
// graph. The declared map carries each registered executor's result types;
// work-act nodes are checked against it. Returned warnings are non-fatal
// (currently: acts unreachable from the first act).
func Compile(doc *Document, declared map[string][]string) (*Graph, []string, error) {
	if doc == nil {
		return nil, nil, warperrors.NewValidationError("workflow", "document is nil", nil)
	}

	v := validatorInstance()
	if err := v.Struct(doc); err != nil {
		return nil, nil, convertValidationError(err)
	}

	g := &Graph{
		Acts:   make(map[string]*Node, len(doc.Acts)),
		Order:  make([]string, 0, len(doc.Acts)),
		States: make(map[string]names.Column, len(doc.States)),
	}

	for outcome, column := range doc.States {
		if !names.ValidColumn(column) {
			return nil, nil, warperrors.NewValidationError(
				fmt.Sprintf("states.%s", outcome),
				fmt.Sprintf("unknown board column %q", column), nil)
		}
		g.States[outcome] = names.Column(column)
	}

	labels := make(map[string]string, len(doc.Acts))

	for i, act := range doc.Acts {
		if _, exists := g.Acts[act.Name]; exists {
			return nil, nil, warperrors.NewValidationError(fieldForAct(i, "name"),
				fmt.Sprintf("duplicate act %q", act.Name), nil)
		}

		node := &Node{
			Name:     act.Name,
			Label:    act.Label,
			Executor: act.Executor,
			Group:    act.Group,
			Results:  act.Results,
		}
		g.Acts[act.Name] = node
		g.Order = append(g.Order, act.Name)
		labels[act.Label] = act.Name
	}

	for i, act := range doc.Acts {
		if err := validateNode(g, doc, i, act, labels, declared); err != nil {
			return nil, nil, err
		}
	}

	if err := validateDeclaredCoverage(g, declared); err != nil {
		return nil, nil, err
	}

	if err := validateRetryAnchors(g); err != nil {
		return nil, nil, err
	}

	var warnings []string
	if first := g.First(); first != nil {
		reachable := FindReachableActs(g, first.Name)
		var unreachable []string
		for _, name := range g.Order {
			if _, ok := reachable[name]; !ok {
				unreachable = append(unreachable, name)
			}
		}
		sort.Strings(unreachable)
		for _, name := range unreachable {
			warnings = append(warnings, fmt.Sprintf("act %q is unreachable from %q", name, first.Name))
		}
	}

	return g, warnings, nil
}

func validateNode(g *Graph, doc *Document, index int, act ActSpec, labels map[string]string, declared map[string][]string) error {
	if act.Group != "" {
		parent, ok := labels[act.Group]
		if !ok {
			return warperrors.NewValidationError(fieldForAct(index, "group"),
				fmt.Sprintf("references unknown phase group %q", act.Group), nil)
		}
		if !g.Acts[parent].PhaseGroup() {
			return warperrors.NewValidationError(fieldForAct(index, "group"),
				fmt.Sprintf("%q is not a phase-group node", act.Group), nil)
		}
	}

	node := g.Acts[act.Name]

	if node.PhaseGroup() {
		if len(act.Results) != 1 {
			return warperrors.NewValidationError(fieldForAct(index, "results"),
				fmt.Sprintf("phase-group node must have exactly one result, found %d", len(act.Results)), nil)
		}
		if _, ok := act.Results[names.ResultCreated]; !ok {
			return warperrors.NewValidationError(fieldForAct(index, "results"),
				fmt.Sprintf("phase-group node's single result must be named %q", names.ResultCreated), nil)
		}
	} else if types, registered := declared[act.Executor]; registered {
		allowed := make(map[string]struct{}, len(types))
		for _, t := range types {
			allowed[t] = struct{}{}
		}
		for resultType := range act.Results {
			if _, ok := allowed[resultType]; !ok {
				return warperrors.NewValidationError(fieldForAct(index, "results"),
					fmt.Sprintf("result type %q is not declared by executor %q", resultType, act.Executor), nil)
			}
		}
	}

	for resultType, result := range act.Results {
		if len(result.Outcomes) == 0 {
			return warperrors.NewValidationError(fieldForResult(index, resultType),
				"result has no outcomes", nil)
		}
		for j, edge := range result.Outcomes {
			field := fmt.Sprintf("%s.outcomes[%d]", fieldForResult(index, resultType), j)
			if edge.Name == "" {
				return warperrors.NewValidationError(field, "edge outcome name is required", nil)
			}
			if _, ok := doc.States[edge.Name]; !ok {
				return warperrors.NewValidationError(field,
					fmt.Sprintf("outcome %q has no states table entry", edge.Name), nil)
			}
			if edge.Next != "" {
				if _, ok := g.Acts[edge.Next]; !ok {
					return warperrors.NewValidationError(field,
						fmt.Sprintf("next references unknown act %q", edge.Next), nil)
				}
			}
			if edge.In != "" && edge.In != names.ContainerIssue {
				if _, ok := labels[edge.In]; !ok {
					return warperrors.NewValidationError(field,
						fmt.Sprintf("in references unknown label %q", edge.In), nil)
				}
			}
		}
	}

	return nil
}

// validateDeclaredCoverage ensures every declared result type of every
// executor bound in the graph is used by at least one node. Unused declared
// types indicate graph/executor drift just as undeclared ones do.
func validateDeclaredCoverage(g *Graph, declared map[string][]string) error {
	used := make(map[string]map[string]struct{})
	bound := make(map[string]struct{})
	for _, node := range g.Acts {
		if node.PhaseGroup() {
			continue
		}
		bound[node.Executor] = struct{}{}
		if used[node.Executor] == nil {
			used[node.Executor] = make(map[string]struct{})
		}
		for resultType := range node.Results {
			used[node.Executor][resultType] = struct{}{}
		}
	}

	for executor, types := range declared {
		if _, ok := bound[executor]; !ok {
			continue
		}
		for _, t := range types {
			// The waiting result commits nothing and never binds an edge.
			if t == names.ResultWaiting {
				continue
			}
			if _, ok := used[executor][t]; !ok {
				return warperrors.NewValidationError("acts",
					fmt.Sprintf("executor %q declares result type %q but no act uses it", executor, t), nil)
			}
		}
	}

	return nil
}

// validateRetryAnchors rejects a terminal outcome name shared by two
// different work acts. Retry-from-blocked resolves the act to re-run from
// the terminal outcome name alone, so a shared name would silently retry
// at whichever act was declared last.
func validateRetryAnchors(g *Graph) error {
	owner := make(map[string]string)
	for _, name := range g.Order {
		node := g.Acts[name]
		if node.PhaseGroup() {
			continue
		}
		for _, result := range node.Results {
			for _, edge := range result.Outcomes {
				if !edge.Terminal() {
					continue
				}
				if prev, ok := owner[edge.Name]; ok && prev != node.Name {
					return warperrors.NewValidationError("acts",
						fmt.Sprintf("terminal outcome %q is produced by both %q and %q; each act needs its own terminal outcome name", edge.Name, prev, node.Name), nil)
				}
				owner[edge.Name] = node.Name
			}
		}
	}
	return nil
}

func convertValidationError(err error) error {
	if err == nil {
		return nil
	}

	if ves, ok := err.(validator.ValidationErrors); ok {
		ve := ves[0]
		field := yamlishFieldName(ve)
		msg := fmt.Sprintf("%s failed validation for tag '%s'", field, ve.Tag())
		return warperrors.NewValidationError(field, msg, err)
	}

	return warperrors.NewValidationError("workflow", err.Error(), err)
}

func yamlishFieldName(fe validator.FieldError) string {
	ns := fe.StructNamespace()
	parts := strings.Split(ns, ".")
	var lowered []string
	for _, part := range parts {
		lowered = append(lowered, strings.ToLower(part))
	}
	return strings.Join(lowered, ".")
}

func fieldForAct(index int, field string) string {
	return fmt.Sprintf("acts[%d].%s", index, field)
}

func fieldForResult(index int, resultType string) string {
	return fmt.Sprintf("acts[%d].results.%s", index, resultType)
}
