// Package hosts implements the legacy host emulators. The set is fixed at
// build time; registration order defines the user-visible host indices.
package hosts

import "github.com/toshok/babelfish/hostapi"

func Register(registry *hostapi.Registry) {
	registry.Register(sunDescriptor, NewSun)
	registry.Register(adbDescriptor, NewADB)
	registry.Register(apolloDescriptor, NewApollo)
}
