package grids

import "fmt"

// Canonical variant names carried by a Bundle. The image grid is mandatory;
// the others are optional but, once present, survive every transformation of
// the bundle with their row correspondence intact.
const (
	VariantImage    = "image"
	VariantSub      = "sub"
	VariantBlurring = "blurring"
	VariantPadded   = "padded"
)

// Bundle carries the named grid variants of one masked observation. Every
// masking or propagation operation transforms all variants identically, so
// the variant count and per-variant row ordering are fixed for the lifetime
// of a bundle.
type Bundle struct {
	names []string
	grids map[string]Grid
}

// NewBundle creates a bundle from the image grid alone.
func NewBundle(image Grid) Bundle {
	b := Bundle{grids: map[string]Grid{}}
	b.names = append(b.names, VariantImage)
	b.grids[VariantImage] = image
	return b
}

// WithVariant returns a copy of the bundle carrying an additional named
// variant. Adding a variant that already exists replaces it in place.
func (b Bundle) WithVariant(name string, g Grid) Bundle {
	out := b.clone()
	if _, ok := out.grids[name]; !ok {
		out.names = append(out.names, name)
	}
	out.grids[name] = g
	return out
}

func (b Bundle) clone() Bundle {
	out := Bundle{
		names: append([]string(nil), b.names...),
		grids: make(map[string]Grid, len(b.grids)),
	}
	for k, v := range b.grids {
		out.grids[k] = v
	}
	return out
}

// Names returns the variant names in insertion order.
func (b Bundle) Names() []string {
	return append([]string(nil), b.names...)
}

// Variant returns the named grid variant.
func (b Bundle) Variant(name string) (Grid, bool) {
	g, ok := b.grids[name]
	return g, ok
}

// Image returns the mandatory image-grid variant.
func (b Bundle) Image() Grid {
	return b.grids[VariantImage]
}

// FieldBundle is a set of vector fields shaped like a Bundle's variants.
type FieldBundle struct {
	names  []string
	fields map[string]VectorField
}

// Names returns the field variant names in bundle order.
func (fb FieldBundle) Names() []string {
	return append([]string(nil), fb.names...)
}

// Field returns the named field variant.
func (fb FieldBundle) Field(name string) (VectorField, bool) {
	f, ok := fb.fields[name]
	return f, ok
}

// Scaled returns the field bundle with every field scaled by f.
func (fb FieldBundle) Scaled(f float64) FieldBundle {
	out := FieldBundle{
		names:  append([]string(nil), fb.names...),
		fields: make(map[string]VectorField, len(fb.fields)),
	}
	for name, field := range fb.fields {
		out.fields[name] = field.Scaled(f)
	}
	return out
}

// Apply evaluates fn on every variant, producing a field bundle with the
// same variant names and row ordering.
func (b Bundle) Apply(fn func(Grid) VectorField) FieldBundle {
	out := FieldBundle{
		names:  append([]string(nil), b.names...),
		fields: make(map[string]VectorField, len(b.grids)),
	}
	for _, name := range b.names {
		out.fields[name] = fn(b.grids[name])
	}
	return out
}

// SubtractFields subtracts a field bundle from every variant, returning the
// traced bundle. The field bundle must carry a field for every variant.
func (b Bundle) SubtractFields(fields FieldBundle) (Bundle, error) {
	out := Bundle{
		names: append([]string(nil), b.names...),
		grids: make(map[string]Grid, len(b.grids)),
	}
	for _, name := range b.names {
		field, ok := fields.fields[name]
		if !ok {
			return Bundle{}, fmt.Errorf("field bundle missing variant %q", name)
		}
		traced, err := b.grids[name].SubtractField(field)
		if err != nil {
			return Bundle{}, fmt.Errorf("variant %q: %w", name, err)
		}
		out.grids[name] = traced
	}
	return out, nil
}
