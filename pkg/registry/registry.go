package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/samber/lo"
)

//go:embed catalogue.json
var defaultCatalogue []byte

// LoadCatalogue reads a catalogue file. An empty path yields the built-in one.
func LoadCatalogue(path string) (*Catalogue, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(data)
}

// Default returns the catalogue compiled into the binary.
func Default() (*Catalogue, error) {
	return parse(defaultCatalogue)
}

func parse(data []byte) (*Catalogue, error) {
	var c Catalogue
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalogue: %w", err)
	}
	if dup := lo.FindDuplicates(lo.Map(c.Kinds, func(k KindSpec, _ int) string { return k.Type })); len(dup) > 0 {
		return nil, fmt.Errorf("parse catalogue: duplicate kinds %v", dup)
	}
	return &c, nil
}

// Kind looks up a kind by type.
func (c *Catalogue) Kind(kind string) (KindSpec, bool) {
	return lo.Find(c.Kinds, func(k KindSpec) bool { return k.Type == kind })
}

// BulkKinds returns the types that may be sent through bulk dispatch.
func (c *Catalogue) BulkKinds() []string {
	return lo.FilterMap(c.Kinds, func(k KindSpec, _ int) (string, bool) {
		return k.Type, k.Bulk
	})
}

// IsBulk reports whether kind may be sent in bulk.
func (c *Catalogue) IsBulk(kind string) bool {
	return lo.Contains(c.BulkKinds(), kind)
}

// Activity looks up the activity served under taskType.
func (c *Catalogue) Activity(taskType string) (Activity, bool) {
	return lo.Find(c.Activities, func(a Activity) bool { return a.TaskType == taskType })
}
