package floorfile

import (
	"fmt"
	"sort"

	"github.com/specialistvlad/officegrid/internal/kernel"
)

// detectNextCycles reports functions whose Next chain leads back to
// themselves. Such a chain would never let its thread complete.
func detectNextCycles(functions []*kernel.Function) error {
	next := make(map[string]string, len(functions))
	for _, fn := range functions {
		next[fn.Name] = fn.Next
	}
	names := make([]string, 0, len(next))
	for name := range next {
		names = append(names, name)
	}
	sort.Strings(names)

	// permanent: visited and not on a cycle. temporary: on the current path.
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(name string) error
	visit = func(name string) error {
		if name == "" || permanent[name] {
			return nil
		}
		if temporary[name] {
			return fmt.Errorf("next chain cycle detected involving function '%s'", name)
		}
		if _, ok := next[name]; !ok {
			// Unknown names are reported by the office.
			return nil
		}
		temporary[name] = true
		if err := visit(next[name]); err != nil {
			return err
		}
		delete(temporary, name)
		permanent[name] = true
		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}
