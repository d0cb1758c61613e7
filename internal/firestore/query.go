package firestore

// Condition is an equality filter on a named field.
type Condition struct {
	Field string
	Value Value
}

// AliasGroup is a one-level OR across two fields matching the same
// value. It exists for the two-tier taxonomy: a category search term
// may match either the category or the subcategory field.
type AliasGroup struct {
	Fields [2]string
	Value  Value
}

// Query describes the filters and pagination to compile.
// Supported nesting is exactly one optional OR group combined with N
// equality conditions under a single AND; arbitrary filter trees are
// out of contract.
type Query struct {
	Collection string
	Conditions []Condition
	Alias      *AliasGroup

	// OrderBy is mandatory for offset pagination: unordered offset
	// queries are non-deterministic in the store. Defaults to
	// updatedAt descending.
	OrderBy   string
	Ascending bool

	Limit  int
	Offset int
}

// DefaultOrderField is the monotonic ordering field used when none is set.
const DefaultOrderField = "updatedAt"

// Compile translates the query into the store's structuredQuery JSON.
func (q Query) Compile() map[string]any {
	sq := map[string]any{
		"from": []map[string]any{{"collectionId": q.Collection}},
	}

	if where := q.compileWhere(); where != nil {
		sq["where"] = where
	}

	orderField := q.OrderBy
	if orderField == "" {
		orderField = DefaultOrderField
	}
	direction := "DESCENDING"
	if q.Ascending {
		direction = "ASCENDING"
	}
	sq["orderBy"] = []map[string]any{{
		"field":     map[string]any{"fieldPath": orderField},
		"direction": direction,
	}}

	if q.Limit > 0 {
		sq["limit"] = q.Limit
	}
	if q.Offset > 0 {
		sq["offset"] = q.Offset
	}

	return map[string]any{"structuredQuery": sq}
}

// compileWhere assembles the filter tree: a single condition is emitted
// unwrapped, multiple combine under one top-level AND.
func (q Query) compileWhere() map[string]any {
	filters := make([]map[string]any, 0, len(q.Conditions)+1)
	for _, c := range q.Conditions {
		filters = append(filters, fieldEqual(c.Field, c.Value))
	}
	if q.Alias != nil {
		filters = append(filters, compositeFilter("OR",
			fieldEqual(q.Alias.Fields[0], q.Alias.Value),
			fieldEqual(q.Alias.Fields[1], q.Alias.Value),
		))
	}

	switch len(filters) {
	case 0:
		return nil
	case 1:
		return filters[0]
	default:
		return compositeFilter("AND", filters...)
	}
}

func fieldEqual(field string, value Value) map[string]any {
	return map[string]any{
		"fieldFilter": map[string]any{
			"field": map[string]any{"fieldPath": field},
			"op":    "EQUAL",
			"value": value,
		},
	}
}

func compositeFilter(op string, filters ...map[string]any) map[string]any {
	return map[string]any{
		"compositeFilter": map[string]any{
			"op":      op,
			"filters": filters,
		},
	}
}
