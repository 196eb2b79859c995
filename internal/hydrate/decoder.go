// Package hydrate converts store documents into typed values through a JSON
// round trip.
package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"

	"github.com/goliatone/go-timetravel/patch"
)

// Context identifies the document being decoded.
type Context struct {
	Store    string
	Branch   string
	Position int
}

func (c Context) String() string {
	return fmt.Sprintf("%s@%s:%d", c.Store, c.Branch, c.Position)
}

// PreHook may rewrite a private copy of the document before decoding. A nil
// result keeps the input.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook adjusts or validates the decoded value.
type PostHook[T any] func(Context, *T) error

// CustomDecoder replaces the JSON step.
type CustomDecoder[T any] func(Context, map[string]any) (T, error)

type DecoderOption[T any] func(*Decoder[T])

// Decoder converts documents into T. The zero value decodes with default
// encoding/json settings.
type Decoder[T any] struct {
	pre       []PreHook
	post      []PostHook[T]
	configure []func(*json.Decoder)
	custom    CustomDecoder[T]
}

func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.pre = append(d.pre, hook)
		}
	}
}

func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.post = append(d.post, hook)
		}
	}
}

// WithUseNumber decodes numbers into json.Number when the target is untyped.
func WithUseNumber[T any]() DecoderOption[T] {
	return WithDecoderConfig[T]((*json.Decoder).UseNumber)
}

// WithDisallowUnknownFields rejects document keys with no matching field.
func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return WithDecoderConfig[T]((*json.Decoder).DisallowUnknownFields)
}

// WithDecoderConfig exposes the json.Decoder directly.
func WithDecoderConfig[T any](configure func(*json.Decoder)) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if configure != nil {
			d.configure = append(d.configure, configure)
		}
	}
}

func WithCustomDecoder[T any](decoder CustomDecoder[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.custom = decoder
	}
}

// NewDecoder builds a Decoder from opts.
func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode converts doc into T. doc itself is never modified.
func (d *Decoder[T]) Decode(ctx Context, doc map[string]any) (T, error) {
	var zero T
	if doc == nil {
		return zero, fmt.Errorf("hydrate: document is nil for %s", ctx)
	}

	prepared, err := d.prepare(ctx, patch.CloneDocument(doc))
	if err != nil {
		return zero, err
	}
	result, err := d.decode(ctx, prepared)
	if err != nil {
		return zero, err
	}
	for _, hook := range d.post {
		if err := hook(ctx, &result); err != nil {
			return zero, fmt.Errorf("hydrate: post-hook for %s: %w", ctx, err)
		}
	}
	return result, nil
}

// DecodeAll decodes every document yielded by history, a position-indexed
// sequence such as a timeline's History. ctx.Position is set per document.
func (d *Decoder[T]) DecodeAll(ctx Context, history iter.Seq2[int, map[string]any]) ([]T, error) {
	var out []T
	for position, doc := range history {
		ctx.Position = position
		value, err := d.Decode(ctx, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, nil
}

func (d *Decoder[T]) prepare(ctx Context, doc map[string]any) (map[string]any, error) {
	for _, hook := range d.pre {
		next, err := hook(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("hydrate: pre-hook for %s: %w", ctx, err)
		}
		if next != nil {
			doc = next
		}
	}
	return doc, nil
}

func (d *Decoder[T]) decode(ctx Context, doc map[string]any) (T, error) {
	var result T
	if d.custom != nil {
		result, err := d.custom(ctx, doc)
		if err != nil {
			return result, fmt.Errorf("hydrate: custom decoder for %s: %w", ctx, err)
		}
		return result, nil
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return result, fmt.Errorf("hydrate: marshal %s: %w", ctx, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	for _, configure := range d.configure {
		configure(dec)
	}
	if err := dec.Decode(&result); err != nil {
		return result, fmt.Errorf("hydrate: decode %s: %w", ctx, err)
	}
	return result, nil
}
