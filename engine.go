package vapor

import (
	"fmt"
	"log"
	"sync"
)

// Verbose gates the package-level DEBUG helper, mirroring the teacher's
// convention of a commented-out "//log" import flipped on only during
// development (uielement.go, router.go use plain log.Printf at call sites
// that matter; DEBUG centralizes the ones that are pure tracing noise in a
// production build).
var Verbose = false

// DEBUG logs a trace line when Verbose is set. It never reaches production
// output by default, the same role the teacher's ad hoc commented log
// imports play, made into one real call site instead of dead code.
func DEBUG(format string, args ...interface{}) {
	if !Verbose {
		return
	}
	log.Printf("vapor: "+format, args...)
}

// Config is the plain, by-value configuration struct spec.md section 6's
// init(config) takes, built the same way the teacher builds Router options
// (functional EngineOption values applied on top of a zero-value Config),
// rather than a long constructor parameter list.
type Config struct {
	Mode            Mode
	FrameArenaLimit int
	Themes          []ThemeDef
	IconRegistry    IconRegistry
	DiagnosticHook  func(Diagnostic)
	Store           func(key string, value Value) error
	Load            func(key string) (Value, bool, error)
}

// EngineOption mutates a Config during New, matching the teacher's
// ConstructorOption (func(*Router) *Router) shape adapted to a plain
// func(*Config).
type EngineOption func(*Config)

func WithMode(m Mode) EngineOption { return func(c *Config) { c.Mode = m } }

func WithFrameArenaLimit(maxBytes int) EngineOption {
	return func(c *Config) { c.FrameArenaLimit = maxBytes }
}

func WithThemes(themes ...ThemeDef) EngineOption {
	return func(c *Config) { c.Themes = append(c.Themes, themes...) }
}

func WithIconRegistry(r IconRegistry) EngineOption {
	return func(c *Config) { c.IconRegistry = r }
}

func WithDiagnosticHook(fn func(Diagnostic)) EngineOption {
	return func(c *Config) { c.DiagnosticHook = fn }
}

func WithStoreHooks(store func(string, Value) error, load func(string) (Value, bool, error)) EngineOption {
	return func(c *Config) {
		c.Store = store
		c.Load = load
	}
}

// Engine is the single process-wide instance spec.md section 9's "globally
// visible engine state" note asks implementers to pick one shape for: the
// lifecycle stack, interner, retained tree, and arena set live here and are
// threaded implicitly through every builder call via the *Engine argument
// element constructors take.
type Engine struct {
	arenas     *ArenaSet
	interner   *Interner
	stack      *Stack
	tree       *Tree
	retained   *Tree
	reconciler *Reconciler
	router     *Router
	driver     *Driver
	applier    Applier
	themes     ThemeRegistry
	icons      IconRegistry

	rootRender RenderRoot

	diagnosticHook func(Diagnostic)
	passSeq        int

	mu        sync.Mutex
	listeners map[string][]func(Value)
}

// New creates an Engine that applies commands through host. Options follow
// the teacher's functional-option convention.
func New(host Applier, opts ...EngineOption) *Engine {
	cfg := Config{Mode: ModeAtomic}
	for _, opt := range opts {
		opt(&cfg)
	}

	arenas := NewArenaSet(cfg.FrameArenaLimit)
	eng := &Engine{
		arenas:         arenas,
		interner:       NewInterner(arenas.Persist),
		tree:           NewTree(),
		retained:       NewTree(),
		reconciler:     NewReconciler(),
		applier:        host,
		icons:          cfg.IconRegistry,
		diagnosticHook: cfg.DiagnosticHook,
		listeners:      make(map[string][]func(Value)),
	}
	eng.stack = NewStack(eng.tree, arenas.Frame)
	eng.stack.OnCollision(eng.reportCollision)
	eng.router = newRouter(eng)
	eng.router.SetStoreHooks(cfg.Store, cfg.Load)
	eng.driver = NewDriver(eng, cfg.Mode)
	eng.themes = NewThemeRegistry(cfg.Themes...)
	return eng
}

// Arena returns the named arena, matching spec.md section 6's
// `arena(kind) -> allocator`.
func (e *Engine) Arena(kind ArenaKind) *Arena { return e.arenas.Get(kind) }

// Interner exposes the style interner for callers that intern style values
// directly rather than through the builder surface's fluent accessors.
func (e *Engine) Interner() *Interner { return e.interner }

// Themes returns the active theme registry.
func (e *Engine) Themes() ThemeRegistry { return e.themes }

// Icons returns the configured icon registry, or nil if none was supplied.
func (e *Engine) Icons() IconRegistry { return e.icons }

// Router exposes the C9 route registry for registration and navigation.
func (e *Engine) Router() *Router { return e.router }

// RegisterPage binds pattern to render, matching spec.md section 6's
// register_page(path_pattern, render_root, destroy_hook?).
func (e *Engine) RegisterPage(pattern string, render RenderRoot, destroy func()) {
	e.router.RegisterPage(pattern, render, destroy)
}

// RegisterLayout binds pathPrefix to a higher-order render root, matching
// spec.md section 6's register_layout(path_prefix, layout_render_root,
// {reset?}).
func (e *Engine) RegisterLayout(pathPrefix string, render LayoutRoot, reset bool) {
	e.router.RegisterLayout(pathPrefix, render, reset)
}

// Navigate activates the route matching path, running the route-change
// sequence from spec.md section 4.9.
func (e *Engine) Navigate(path string) error { return e.router.Navigate(path) }

// Param reads a named dynamic path segment bound by the active route.
func (e *Engine) Param(name string) (string, bool) { return e.router.Param(name) }

// SetRoot installs a render root run directly, bypassing the router — for
// callers that do not need route registration at all.
func (e *Engine) SetRoot(render RenderRoot) { e.rootRender = render }

// Cycle forces a render pass, matching spec.md section 6's cycle().
func (e *Engine) Cycle() error { return e.driver.Cycle() }

// Tick drives one Immediate-mode frame.
func (e *Engine) Tick() error { return e.driver.Tick() }

// Listen registers a process-wide listener for a global event kind,
// matching spec.md section 6's eventListener(global_event_kind, fn).
func (e *Engine) Listen(kind string, fn func(Value)) {
	e.mu.Lock()
	e.listeners[kind] = append(e.listeners[kind], fn)
	e.mu.Unlock()
}

// Dispatch delivers an externally-originated event to every listener
// registered for kind, then triggers the Atomic/Retained-mode pass that
// event implies (spec.md section 4.8: "after every externally-originated
// event ... the driver reruns the render root exactly once"). Immediate
// mode ignores Dispatch's pass-triggering side effect since it reruns on
// its own per-frame cadence via Tick.
func (e *Engine) Dispatch(kind string, payload Value) error {
	e.mu.Lock()
	fns := make([]func(Value), len(e.listeners[kind]))
	copy(fns, e.listeners[kind])
	e.mu.Unlock()

	for _, fn := range fns {
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.report(DiagHandlerException, fmt.Errorf("vapor: listener for %q panicked: %v", kind, r))
				}
			}()
			fn(payload)
		}()
	}

	if e.driver.Mode() == ModeImmediate {
		return nil
	}
	return e.driver.Cycle()
}

// runPass is the driver's entry point for a single pass: it selects the
// active render root (the router's current page+layout, or the directly
// installed root) and runs it.
func (e *Engine) runPass() error {
	render, err := e.router.ActiveRender()
	if err != nil {
		if e.rootRender == nil {
			return err
		}
		render = e.rootRender
	}
	return e.runWith(render)
}

// runWith executes render to build a fresh tree in the frame arena, checks
// the lifecycle stack balance invariant, reconciles against the retained
// tree, applies the resulting commands, then resets the frame arena —
// the per-tick data flow from spec.md section 2.
func (e *Engine) runWith(render RenderRoot) error {
	e.passSeq++
	if e.stack != nil {
		e.stack.Release()
	}
	e.tree = NewTree()
	e.stack = NewStack(e.tree, e.arenas.Frame)
	e.stack.OnCollision(e.reportCollision)

	func() {
		defer func() {
			if r := recover(); r != nil {
				e.stack.Abort()
				e.report(DiagHandlerException, fmt.Errorf("vapor: render root panicked: %v", r))
			}
		}()
		render(e)
	}()

	if err := e.stack.Err(); err != nil {
		e.stack.Abort()
		e.report(DiagAllocationExhausted, err)
		return err
	}

	if !e.stack.Balanced() {
		depth := e.stack.Depth()
		e.stack.Abort()
		err := fmt.Errorf("%w: pass %d ended with %d open frames", ErrLifecycleImbalance, e.passSeq, depth)
		e.report(DiagLifecycleImbalance, err)
		return err
	}

	res, err := e.reconciler.Reconcile(e.tree, e.retained)
	if err != nil {
		e.report(DiagReconcilerInconsistent, err)
		return err
	}

	if e.applier != nil {
		if err := Apply(e.applier, res); err != nil {
			e.report(DiagHostApplyFailure, err)
			releaseResult(res)
			// The host surface may have partially applied res (some
			// commands landed before the failing one), so it no longer
			// matches e.retained. Discarding the retained tree forces the
			// next pass's Reconcile to treat the whole new tree as Add,
			// rebuilding the host from scratch instead of diffing against
			// state that can no longer be trusted (spec.md section 7 error
			// kind 5), the same recovery Router.Navigate uses for a route
			// change.
			e.retained = NewTree()
			return err
		}
	}

	e.retained = e.tree
	e.arenas.Frame.Reset()
	releaseResult(res)
	return nil
}

// reportCollision is the Stack's OnCollision hook, surfacing a disambiguated
// sibling-identity collision as a diagnostic instead of letting it pass
// silently (spec.md section 7.3: "report warning").
func (e *Engine) reportCollision(kind Kind, key string, salt uintptr) {
	e.report(DiagIdentityCollision, fmt.Errorf("%w: kind=%s key=%q salt=%d", ErrIdentityCollision, kind, key, salt))
}

func (e *Engine) report(kind DiagnosticKind, err error) {
	DEBUG("%s: %v", kind, err)
	if e.diagnosticHook != nil {
		e.diagnosticHook(Diagnostic{Kind: kind, Err: err, Pass: e.passSeq})
	}
}

const assumedElementSize = 8

// Array is a growing sequence allocated against a named arena's byte
// budget (spec.md section 6's `array(T, kind) -> dynamic_sequence`). Go
// slices already grow on their own; Array's role is charging that growth
// against the arena so a caller-managed sequence can exhaust the same way
// engine-owned bookkeeping does, reachable by the allocation-exhaustion
// recovery path in spec.md section 8 scenario 4.
type Array[T any] struct {
	arena *Arena
	items []T
}

// NewArray creates an empty Array charging its growth against arena.
func NewArray[T any](arena *Arena) *Array[T] {
	return &Array[T]{arena: arena}
}

// Append grows the array by one element, failing with ErrArenaExhausted if
// the backing arena cannot absorb the charge.
func (a *Array[T]) Append(v T) error {
	if _, err := a.arena.Alloc(assumedElementSize, 1); err != nil {
		return err
	}
	a.items = append(a.items, v)
	return nil
}

func (a *Array[T]) Items() []T { return a.items }
func (a *Array[T]) Len() int   { return len(a.items) }
