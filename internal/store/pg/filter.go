package pg

import (
	"fmt"
	"strings"

	"tessera.org/internal/authz"
)

// filterColumns is the allowlist of columns a ByField spec may reference.
// Field names originate in the engine, but the allowlist keeps a future
// mistake from reaching SQL.
var filterColumns = map[string]struct{}{
	authz.FieldSystemEditionID: {},
	authz.FieldCompanyID:       {},
	authz.FieldDelegatorID:     {},
	authz.FieldDelegateID:      {},
}

// filterClause renders a FilterSpec into a SQL condition with positional
// arguments starting at startIdx. An empty clause means no restriction.
func filterClause(spec authz.FilterSpec, idColumn string, startIdx int) (string, []any, error) {
	switch f := spec.(type) {
	case nil:
		return "", nil, fmt.Errorf("pg: nil filter spec")
	case authz.NoFilter:
		return "", nil, nil
	case authz.ByID:
		return fmt.Sprintf("%s = $%d", idColumn, startIdx), []any{f.ID}, nil
	case authz.ByField:
		if _, ok := filterColumns[f.Name]; !ok {
			return "", nil, fmt.Errorf("pg: unknown filter column %q", f.Name)
		}
		return fmt.Sprintf("%s = $%d", f.Name, startIdx), []any{f.Value}, nil
	case authz.AnyOf:
		if len(f.Specs) == 0 {
			return "", nil, fmt.Errorf("pg: empty any-of filter")
		}
		var (
			clauses []string
			args    []any
		)
		idx := startIdx
		for _, sub := range f.Specs {
			clause, subArgs, err := filterClause(sub, idColumn, idx)
			if err != nil {
				return "", nil, err
			}
			if clause == "" {
				// A no-restriction branch makes the whole disjunction moot.
				return "", nil, nil
			}
			clauses = append(clauses, clause)
			args = append(args, subArgs...)
			idx += len(subArgs)
		}
		return "(" + strings.Join(clauses, " or ") + ")", args, nil
	default:
		return "", nil, fmt.Errorf("pg: unsupported filter spec %T", spec)
	}
}
