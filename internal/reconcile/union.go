package reconcile

import (
	"rxscan/internal/domain"
	"rxscan/internal/extract"
)

// UnionFields combines per-sample records into the set of distinct non-null
// values per field, in first-observed order. Fields never observed are nil.
func UnionFields(records []extract.Record, table extract.Table) domain.AggregatedResult {
	result := make(domain.AggregatedResult, len(table))
	for _, name := range table.Names() {
		seen := make(map[string]bool)
		var values []string
		for _, rec := range records {
			v := rec[name]
			if v == nil || *v == "" || seen[*v] {
				continue
			}
			seen[*v] = true
			values = append(values, *v)
		}
		result[name] = values
	}
	return result
}
