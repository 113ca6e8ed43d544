package cmdmode

import (
	"fmt"

	"github.com/toshok/babelfish/hostapi"
	"go.uber.org/zap"
)

// Selector persists a host choice for the next boot. Selection is
// boot-time only; there is no runtime hot swap.
type Selector interface {
	Persist(index int) error
}

// RegisterBuiltins installs the stock menu: `h` types the host list at
// the attached host (the host's own screen is the menu display), and one
// digit per registered host persists that choice for the next boot.
func RegisterBuiltins(f *Filter, registry *hostapi.Registry, activeIndex int, selector Selector) {
	f.RegisterCommand(Command{
		Key:  'h',
		Help: "list available hosts",
		Run: func(f *Filter) {
			for i, desc := range registry.Descriptors() {
				mark := "  "
				if i == activeIndex {
					mark = "* "
				}
				f.Type(fmt.Sprintf("%s%d %s\n", mark, i, desc.Name))
			}
		},
	})

	if selector == nil {
		return
	}
	for i := 0; i < registry.Len() && i < 10; i++ {
		index := i
		f.RegisterCommand(Command{
			Key:  byte('0' + i),
			Help: fmt.Sprintf("select host %d on next boot", i),
			Run: func(f *Filter) {
				if err := selector.Persist(index); err != nil {
					f.log.Error("failed to persist host selection", zap.Error(err))
					return
				}
				f.Type("ok\n")
			},
		})
	}
}
