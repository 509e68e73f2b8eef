package reference

import (
	"github.com/ka2n/cmsrelay/log"
	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
)

// Extractor flattens the file entries nested under each record.
// Path lists the child collections to descend, e.g. ["investor_info", "file_info"].
type Extractor struct {
	Path []string
	Keys Keys
}

// Extract walks every record along e.Path and returns the leaf references in listing order.
// A record missing a collection on the path contributes nothing.
func (e Extractor) Extract(records []Record) []FileReference {
	return lo.FlatMap(records, func(r Record, _ int) []FileReference {
		owner := e.scalar(r, e.Keys.Owner)
		leaves := descend([]map[string]any{r}, e.Path)
		return lo.Map(leaves, func(leaf map[string]any, _ int) FileReference {
			return FileReference{
				URL:   e.scalar(leaf, e.Keys.URL),
				ID:    e.scalar(leaf, e.Keys.ID),
				Name:  e.scalar(leaf, e.Keys.Name),
				Owner: owner,
			}
		})
	})
}

// descend replaces every node with the entries of its named child collection, one path element at a time
func descend(nodes []map[string]any, path []string) []map[string]any {
	for _, key := range path {
		nodes = lo.FlatMap(nodes, func(n map[string]any, _ int) []map[string]any {
			return children(n[key])
		})
	}
	return nodes
}

// children accepts a list of objects or a single object; anything else yields nothing
func children(v any) []map[string]any {
	switch c := v.(type) {
	case []any:
		return lo.FilterMap(c, func(item any, _ int) (map[string]any, bool) {
			m, ok := item.(map[string]any)
			return m, ok
		})
	case map[string]any:
		return []map[string]any{c}
	default:
		return nil
	}
}

// scalar reads key from m as a string, converting numbers and booleans
func (e Extractor) scalar(m map[string]any, key string) string {
	if key == "" {
		return ""
	}
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	var s string
	if err := mapstructure.WeakDecode(v, &s); err != nil {
		log.Debug("Ignoring non-scalar reference field", "key", key, "error", err)
		return ""
	}
	return s
}
