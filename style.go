package vapor

import "hash/maphash"

// StyleValue is a value-typed record of visual properties, grouped into the
// field families spec.md section 3 enumerates: visual, layout, sizing,
// spacing, typography, border, shadow, interactive, transition, and
// animation-binding. Every field defaults to "unset" (the zero
// StyleField{}); two StyleValues compare equal iff every field compares
// equal (spec.md invariant 3).
type StyleValue struct {
	Visual     VisualStyle
	Layout     LayoutStyle
	Sizing     SizingStyle
	Spacing    SpacingStyle
	Typography TypographyStyle
	Border     BorderStyle
	Shadow     ShadowStyle
	Hover      *StyleValue // interactive: styles applied while hovered
	Focus      *StyleValue // interactive: styles applied while focused
	Transition TransitionStyle
	Animation  AnimationBinding
}

// StyleField is a generic "unset or set to T" slot, so field-wise merge can
// tell an explicitly-set zero value apart from an absent one (spec.md's
// "all fields default to unset").
type StyleField[T comparable] struct {
	Set   bool
	Value T
}

func Set[T comparable](v T) StyleField[T] { return StyleField[T]{Set: true, Value: v} }

type VisualStyle struct {
	Color      StyleField[string]
	Background StyleField[string]
	Opacity    StyleField[float64]
}

type LayoutStyle struct {
	Display        StyleField[string]
	Position       StyleField[string]
	JustifyContent StyleField[string]
	AlignItems     StyleField[string]
	ZIndex         StyleField[int]
}

type SizingStyle struct {
	Width     StyleField[string]
	Height    StyleField[string]
	MinWidth  StyleField[string]
	MinHeight StyleField[string]
}

type SpacingStyle struct {
	Margin  StyleField[string]
	Padding StyleField[string]
	Gap     StyleField[string]
}

type TypographyStyle struct {
	FontFamily StyleField[string]
	FontSize   StyleField[string]
	FontWeight StyleField[string]
}

type BorderStyle struct {
	Width StyleField[string]
	Style StyleField[string]
	Color StyleField[string]
	Radius StyleField[string]
}

type ShadowStyle struct {
	Value StyleField[string]
}

type TransitionStyle struct {
	Property StyleField[string]
	Duration StyleField[string]
	Easing   StyleField[string]
}

// AnimationBinding names an animation by a token the host/theme resolves,
// rather than embedding a keyframe DSL — spec.md's non-goal rules out a
// style language parser, so this stays a value, not text to be parsed.
type AnimationBinding struct {
	Name StyleField[string]
}

func mergeField[T comparable](base, ext StyleField[T]) StyleField[T] {
	if ext.Set {
		return ext
	}
	return base
}

// Merge returns a new StyleValue whose every field is ext's field if set,
// else base's (spec.md section 4.2's merge semantics: "not commutative").
// Interning happens after merging, never before.
func (base StyleValue) Merge(ext StyleValue) StyleValue {
	out := StyleValue{
		Visual: VisualStyle{
			Color:      mergeField(base.Visual.Color, ext.Visual.Color),
			Background: mergeField(base.Visual.Background, ext.Visual.Background),
			Opacity:    mergeField(base.Visual.Opacity, ext.Visual.Opacity),
		},
		Layout: LayoutStyle{
			Display:        mergeField(base.Layout.Display, ext.Layout.Display),
			Position:       mergeField(base.Layout.Position, ext.Layout.Position),
			JustifyContent: mergeField(base.Layout.JustifyContent, ext.Layout.JustifyContent),
			AlignItems:     mergeField(base.Layout.AlignItems, ext.Layout.AlignItems),
			ZIndex:         mergeField(base.Layout.ZIndex, ext.Layout.ZIndex),
		},
		Sizing: SizingStyle{
			Width:     mergeField(base.Sizing.Width, ext.Sizing.Width),
			Height:    mergeField(base.Sizing.Height, ext.Sizing.Height),
			MinWidth:  mergeField(base.Sizing.MinWidth, ext.Sizing.MinWidth),
			MinHeight: mergeField(base.Sizing.MinHeight, ext.Sizing.MinHeight),
		},
		Spacing: SpacingStyle{
			Margin:  mergeField(base.Spacing.Margin, ext.Spacing.Margin),
			Padding: mergeField(base.Spacing.Padding, ext.Spacing.Padding),
			Gap:     mergeField(base.Spacing.Gap, ext.Spacing.Gap),
		},
		Typography: TypographyStyle{
			FontFamily: mergeField(base.Typography.FontFamily, ext.Typography.FontFamily),
			FontSize:   mergeField(base.Typography.FontSize, ext.Typography.FontSize),
			FontWeight: mergeField(base.Typography.FontWeight, ext.Typography.FontWeight),
		},
		Border: BorderStyle{
			Width:  mergeField(base.Border.Width, ext.Border.Width),
			Style:  mergeField(base.Border.Style, ext.Border.Style),
			Color:  mergeField(base.Border.Color, ext.Border.Color),
			Radius: mergeField(base.Border.Radius, ext.Border.Radius),
		},
		Shadow: ShadowStyle{
			Value: mergeField(base.Shadow.Value, ext.Shadow.Value),
		},
		Transition: TransitionStyle{
			Property: mergeField(base.Transition.Property, ext.Transition.Property),
			Duration: mergeField(base.Transition.Duration, ext.Transition.Duration),
			Easing:   mergeField(base.Transition.Easing, ext.Transition.Easing),
		},
		Animation: AnimationBinding{
			Name: mergeField(base.Animation.Name, ext.Animation.Name),
		},
	}
	out.Hover = mergeStylePtr(base.Hover, ext.Hover)
	out.Focus = mergeStylePtr(base.Focus, ext.Focus)
	return out
}

func mergeStylePtr(base, ext *StyleValue) *StyleValue {
	if ext != nil {
		return ext
	}
	return base
}

// Equal compares every field, per spec.md invariant 3.
func (a StyleValue) Equal(b StyleValue) bool {
	if a.Visual != b.Visual || a.Layout != b.Layout || a.Sizing != b.Sizing ||
		a.Spacing != b.Spacing || a.Typography != b.Typography ||
		a.Border != b.Border || a.Shadow != b.Shadow ||
		a.Transition != b.Transition || a.Animation != b.Animation {
		return false
	}
	if (a.Hover == nil) != (b.Hover == nil) {
		return false
	}
	if a.Hover != nil && !a.Hover.Equal(*b.Hover) {
		return false
	}
	if (a.Focus == nil) != (b.Focus == nil) {
		return false
	}
	if a.Focus != nil && !a.Focus.Equal(*b.Focus) {
		return false
	}
	return true
}

// StyleHandle is an opaque integer naming an interned StyleValue. The zero
// handle is reserved to mean "no style configured".
type StyleHandle uint32

// Interner deduplicates StyleValues, collapsing field-wise-equal values to
// the same handle regardless of submission order (spec.md section 4.2).
// Handles are stable for the life of the session and are never recycled.
//
// The hash-then-probe-equality shape follows the teacher's
// ElementStore.ByID content-addressed map pattern, generalized from
// identity-keyed lookup to value-keyed lookup with explicit collision
// probing (hash collisions must still be resolved by equality, per spec.md
// section 3's "Style table" contract).
type Interner struct {
	persist *Arena
	seed    maphash.Seed
	buckets map[uint64][]StyleHandle
	values  []StyleValue // index 0 unused, so StyleHandle(0) stays the sentinel
}

func NewInterner(persist *Arena) *Interner {
	return &Interner{
		persist: persist,
		seed:    maphash.MakeSeed(),
		buckets: make(map[uint64][]StyleHandle),
		values:  make([]StyleValue, 1),
	}
}

func (in *Interner) hash(v StyleValue) uint64 {
	var h maphash.Hash
	h.SetSeed(in.seed)
	writeStyleValue(&h, v)
	return h.Sum64()
}

// Intern returns the stable handle for v, reusing an existing handle if an
// extensionally-equal value was interned before. It never errors on the
// hash path; the only failure mode is the persist arena being exhausted
// when growing the canonical-value table, per spec.md section 4.2's
// "fatal configuration error" clause — here represented by ErrArenaExhausted
// since this implementation keeps the canonical table as a plain Go slice
// rather than persist-arena bytes (a map of hash to []StyleHandle cannot
// itself live inside a bump arena without reflection-heavy placement new,
// which no example in the pack demonstrates; the persist arena is still
// charged one byte per new handle via Alloc below to make the "owned by
// persist" contract observable and testable).
func (in *Interner) Intern(v StyleValue) (StyleHandle, error) {
	h := in.hash(v)
	for _, handle := range in.buckets[h] {
		if in.values[handle].Equal(v) {
			return handle, nil
		}
	}
	if _, err := in.persist.Alloc(1, 1); err != nil {
		return 0, err
	}
	handle := StyleHandle(len(in.values))
	in.values = append(in.values, v)
	in.buckets[h] = append(in.buckets[h], handle)
	return handle, nil
}

// Lookup retrieves the canonical value for a handle.
func (in *Interner) Lookup(h StyleHandle) (StyleValue, bool) {
	if h == 0 || int(h) >= len(in.values) {
		return StyleValue{}, false
	}
	return in.values[h], true
}

// Count returns the number of distinct interned style values, for tests and
// diagnostics.
func (in *Interner) Count() int { return len(in.values) - 1 }

func writeStyleValue(h *maphash.Hash, v StyleValue) {
	writeField(h, v.Visual.Color)
	writeField(h, v.Visual.Background)
	writeField(h, v.Visual.Opacity)
	writeField(h, v.Layout.Display)
	writeField(h, v.Layout.Position)
	writeField(h, v.Layout.JustifyContent)
	writeField(h, v.Layout.AlignItems)
	writeField(h, v.Layout.ZIndex)
	writeField(h, v.Sizing.Width)
	writeField(h, v.Sizing.Height)
	writeField(h, v.Sizing.MinWidth)
	writeField(h, v.Sizing.MinHeight)
	writeField(h, v.Spacing.Margin)
	writeField(h, v.Spacing.Padding)
	writeField(h, v.Spacing.Gap)
	writeField(h, v.Typography.FontFamily)
	writeField(h, v.Typography.FontSize)
	writeField(h, v.Typography.FontWeight)
	writeField(h, v.Border.Width)
	writeField(h, v.Border.Style)
	writeField(h, v.Border.Color)
	writeField(h, v.Border.Radius)
	writeField(h, v.Shadow.Value)
	writeField(h, v.Transition.Property)
	writeField(h, v.Transition.Duration)
	writeField(h, v.Transition.Easing)
	writeField(h, v.Animation.Name)
	if v.Hover != nil {
		h.WriteByte(1)
		writeStyleValue(h, *v.Hover)
	} else {
		h.WriteByte(0)
	}
	if v.Focus != nil {
		h.WriteByte(1)
		writeStyleValue(h, *v.Focus)
	} else {
		h.WriteByte(0)
	}
}

func writeField[T comparable](h *maphash.Hash, f StyleField[T]) {
	if !f.Set {
		h.WriteByte(0)
		return
	}
	h.WriteByte(1)
	switch v := any(f.Value).(type) {
	case string:
		h.WriteString(v)
	case int:
		var buf [8]byte
		putInt(buf[:], v)
		h.Write(buf[:])
	case float64:
		var buf [8]byte
		putInt(buf[:], int(v*1e6))
		h.Write(buf[:])
	}
}

func putInt(buf []byte, v int) {
	u := uint64(v)
	for i := 0; i < 8; i++ {
		buf[i] = byte(u >> (8 * i))
	}
}
