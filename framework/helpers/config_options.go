package helpers

// ConfigOption is one option in a variadic options list; see ApplyOptions.
type ConfigOption[T any] interface {
	Configure(*T) error
}

// ConfigOptionFunc adapts a plain function to ConfigOption.
type ConfigOptionFunc[T any] func(*T) error

func (f ConfigOptionFunc[T]) Configure(target *T) error { return f(target) }

// ApplyOptions applies options to target in order, stopping at the first error.
//
// Options are typed as U rather than ConfigOption[T] so that a package can declare its own
// option type, such as rpc.ClientOption, and still pass a slice of it here.
func ApplyOptions[T any, U ConfigOption[T]](target *T, options ...U) error {
	for _, option := range options {
		if err := option.Configure(target); err != nil {
			return err
		}
	}
	return nil
}
