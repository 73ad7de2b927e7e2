package hookstate

import (
	"github.com/goliatone/go-hookstate/internal/hydrate"
)

// DecodeOption configures Decode.
type DecodeOption[T any] func(path Path) hydrate.DecoderOption[T]

// DecodeUseNumber decodes numbers into json.Number.
func DecodeUseNumber[T any]() DecodeOption[T] {
	return func(Path) hydrate.DecoderOption[T] {
		return hydrate.WithUseNumber[T]()
	}
}

// DecodeDisallowUnknownFields fails on mapping keys with no matching field.
func DecodeDisallowUnknownFields[T any]() DecodeOption[T] {
	return func(Path) hydrate.DecoderOption[T] {
		return hydrate.WithDisallowUnknownFields[T]()
	}
}

// DecodePreHook rewrites the exported value before it is decoded.
func DecodePreHook[T any](hook func(path Path, value any) (any, error)) DecodeOption[T] {
	return func(path Path) hydrate.DecoderOption[T] {
		return hydrate.WithPreHook[T](func(_ hydrate.Context, value any) (any, error) {
			return hook(path, value)
		})
	}
}

// DecodePostHook adjusts or validates the decoded value.
func DecodePostHook[T any](hook func(path Path, value *T) error) DecodeOption[T] {
	return func(path Path) hydrate.DecoderOption[T] {
		return hydrate.WithPostHook[T](func(_ hydrate.Context, value *T) error {
			return hook(path, value)
		})
	}
}

// Decode records a value read through a and decodes the value into T using
// its json field tags. A missing or pending value is an error.
func Decode[T any](a *Accessor, opts ...DecodeOption[T]) (T, error) {
	var zero T
	value, err := a.Get()
	if err != nil {
		return zero, err
	}
	decoderOpts := make([]hydrate.DecoderOption[T], 0, len(opts))
	for _, opt := range opts {
		if opt != nil {
			decoderOpts = append(decoderOpts, opt(a.path))
		}
	}
	result, err := hydrate.NewDecoder[T](decoderOpts...).Decode(hydrate.Context{Path: a.path.String()}, value)
	if err != nil {
		return zero, wrapStateError("decode", a.path, err)
	}
	return result, nil
}
