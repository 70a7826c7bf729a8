package selector

import (
	"reflect"

	"github.com/google/go-cmp/cmp"
)

// Option configures a node at creation.
type Option interface {
	apply(*nodeConfig)
}

type nodeConfig struct {
	name  string
	equal any
}

type optionFunc func(*nodeConfig)

func (f optionFunc) apply(c *nodeConfig) { f(c) }

// WithName names a node for logs and metrics. Unnamed nodes get "node-N".
func WithName(name string) Option {
	return optionFunc(func(c *nodeConfig) {
		c.name = name
	})
}

// EqualFunc sets the equality used to decide whether a recomputed value is a
// change. T must match the node's value type, otherwise creation fails with
// ErrCodeEqualityMismatch.
func EqualFunc[T any](eq func(a, b T) bool) Option {
	return optionFunc(func(c *nodeConfig) {
		c.equal = eq
	})
}

// CmpEqual compares values with go-cmp, honoring the given options.
func CmpEqual[T any](opts ...cmp.Option) Option {
	return EqualFunc(func(a, b T) bool {
		return cmp.Equal(a, b, opts...)
	})
}

// defaultEqual is content equality: slices, maps and pointed-to structs are
// compared by value, so container-shaped outputs still memoize.
func defaultEqual[T any](a, b T) bool {
	return reflect.DeepEqual(a, b)
}

func resolveEqual[T any](cfg nodeConfig) (func(a, b T) bool, error) {
	if cfg.equal == nil {
		return defaultEqual[T], nil
	}
	eq, ok := cfg.equal.(func(a, b T) bool)
	if !ok || eq == nil {
		return nil, newConfigError(ErrCodeEqualityMismatch, cfg.name,
			"equality %T does not compare %v", cfg.equal, reflect.TypeOf((*T)(nil)).Elem())
	}
	return eq, nil
}
