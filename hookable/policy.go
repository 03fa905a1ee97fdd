package hookable

import (
	"slices"

	"github.com/wnxd/microhook/module"
)

// NameFilter lists the file names a module may be loaded under, highest priority first.
// Names compare whole and exactly; list every spelling the loader may report.
type NameFilter []string

func (f NameFilter) Index(name string) (int, bool) {
	i := slices.Index(f, name)
	return i, i >= 0
}

// PickBest returns the candidate with the highest priority name. Candidates sharing a
// name are taken in the order given.
func (f NameFilter) PickBest(candidates []module.Info) (module.Info, bool) {
	for _, name := range f {
		for _, c := range candidates {
			if c.Name() == name {
				return c, true
			}
		}
	}
	return module.Info{}, false
}

// ShouldAdopt reports whether candidate should replace the module hooked at priority
// current, -1 meaning nothing is hooked. Only a strictly higher priority name wins.
func (f NameFilter) ShouldAdopt(current int, candidate module.Info) bool {
	i, ok := f.Index(candidate.Name())
	if !ok {
		return false
	}
	return current < 0 || i < current
}
