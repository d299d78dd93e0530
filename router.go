package vapor

import (
	"fmt"
	"strings"
)

// RenderRoot is a render function bound to a route: a function of the
// Engine that drives the builder surface to produce this pass's tree.
type RenderRoot func(*Engine)

// LayoutRoot is a higher-order render root that receives the inner page's
// RenderRoot and invokes it at the position it chooses (spec.md section
// 4.9's "layout wrappers compose as higher-order render roots").
type LayoutRoot func(eng *Engine, inner RenderRoot)

// Route binds a path pattern to a render root and an optional destroy hook
// run when navigation moves away from it (spec.md section 4.9).
type Route struct {
	Pattern string
	Render  RenderRoot
	Destroy func()

	segments []routeSegment
}

type routeSegment struct {
	literal string
	param   string // non-empty for a ":name" dynamic segment
}

func compilePattern(pattern string) []routeSegment {
	parts := strings.Split(strings.Trim(pattern, "/"), "/")
	segs := make([]routeSegment, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		if strings.HasPrefix(p, ":") {
			segs = append(segs, routeSegment{param: p[1:]})
		} else {
			segs = append(segs, routeSegment{literal: p})
		}
	}
	return segs
}

func matchSegments(segs []routeSegment, path string) (map[string]string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 1 && parts[0] == "" {
		parts = nil
	}
	if len(parts) != len(segs) {
		return nil, false
	}
	params := make(map[string]string)
	for i, seg := range segs {
		if seg.param != "" {
			params[seg.param] = parts[i]
			continue
		}
		if seg.literal != parts[i] {
			return nil, false
		}
	}
	return params, true
}

// Layout binds a path prefix to a LayoutRoot that wraps every page whose
// path falls under it (spec.md section 4.9).
type Layout struct {
	PathPrefix string
	Render     LayoutRoot
	Reset      bool
}

// Router is the C9 component: a route registry plus the machinery to swap
// the active render root and reset view-scoped state on navigation. It
// generalizes the teacher's Router (router.go: rnode/match path tree,
// GoTo/GoBack/Hijack) down to the subset spec.md names — path-pattern
// matching and route-change side effects — dropping the teacher's browser
// history integration and authorization hooks, which belong to the host
// boundary rather than the core (spec.md section 1).
type Router struct {
	eng     *Engine
	routes  map[string]*Route
	order   []string // registration order, for deterministic first-match-wins scanning
	layouts []*Layout

	activePath   string
	activeRoute  *Route
	activeLayout *Layout
	activeParams map[string]string

	store func(key string, value Value) error
	load  func(key string) (Value, bool, error)
}

func newRouter(eng *Engine) *Router {
	return &Router{
		eng:    eng,
		routes: make(map[string]*Route),
	}
}

// RegisterPage adds or replaces the route for pattern (spec.md section
// 4.9: "registration is idempotent by path" — a second registration of the
// same pattern overwrites the first rather than creating a duplicate).
func (r *Router) RegisterPage(pattern string, render RenderRoot, destroy func()) {
	route := &Route{Pattern: pattern, Render: render, Destroy: destroy, segments: compilePattern(pattern)}
	if _, exists := r.routes[pattern]; !exists {
		r.order = append(r.order, pattern)
	}
	r.routes[pattern] = route
}

// RegisterLayout adds a layout wrapping every page under pathPrefix.
// reset is stored on the Layout (spec.md section 4.9's register_layout
// "{reset?: bool}"), but Navigate discards the retained tree and runs a
// full-add pass on every route change whatever its value, so reset does not
// change navigation behavior.
func (r *Router) RegisterLayout(pathPrefix string, render LayoutRoot, reset bool) {
	for _, l := range r.layouts {
		if l.PathPrefix == pathPrefix {
			l.Render = render
			l.Reset = reset
			return
		}
	}
	r.layouts = append(r.layouts, &Layout{PathPrefix: pathPrefix, Render: render, Reset: reset})
}

// SetStoreHooks installs the store/load persistence hook interface from
// spec.md section 6 ("the core exposes a store(key,value)/load(key) hook
// interface the host implements").
func (r *Router) SetStoreHooks(store func(string, Value) error, load func(string) (Value, bool, error)) {
	r.store = store
	r.load = load
}

func (r *Router) layoutFor(path string) *Layout {
	var best *Layout
	for _, l := range r.layouts {
		if !strings.HasPrefix(path, l.PathPrefix) {
			continue
		}
		if best == nil || len(l.PathPrefix) > len(best.PathPrefix) {
			best = l
		}
	}
	return best
}

func (r *Router) matchRoute(path string) (*Route, map[string]string, bool) {
	for _, pattern := range r.order {
		route := r.routes[pattern]
		if params, ok := matchSegments(route.segments, path); ok {
			return route, params, true
		}
	}
	return nil, nil, false
}

// Navigate performs the route-change sequence from spec.md section 4.9:
// run the outgoing route's destroy hook, reset the view arena, discard the
// retained tree (so the next pass is a full add), then activate the
// incoming route. Returns ErrRouteNotFound if no route matches path.
func (r *Router) Navigate(path string) error {
	route, params, ok := r.matchRoute(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRouteNotFound, path)
	}
	layout := r.layoutFor(path)

	if r.activeRoute != nil && r.activeRoute.Destroy != nil {
		r.activeRoute.Destroy()
	}

	r.eng.arenas.View.Reset()
	if old, ok := r.eng.retained.Get(r.eng.retained.Root); ok && r.eng.applier != nil {
		var res Result
		r.eng.reconciler.removeSubtree(r.eng.retained, old, &res)
		if err := Apply(r.eng.applier, res); err != nil {
			r.eng.report(DiagHostApplyFailure, err)
		}
	}
	r.eng.retained = NewTree()

	r.activePath = path
	r.activeRoute = route
	r.activeLayout = layout
	r.activeParams = params

	return r.eng.driver.Cycle()
}

// Param returns a named dynamic path segment bound by the active route.
func (r *Router) Param(name string) (string, bool) {
	v, ok := r.activeParams[name]
	return v, ok
}

// ActiveRender returns the render root the engine should run for the
// current pass: the active page, wrapped by its layout if one applies.
func (r *Router) ActiveRender() (RenderRoot, error) {
	if r.activeRoute == nil {
		return nil, ErrNoActiveRoute
	}
	page := r.activeRoute.Render
	layout := r.activeLayout
	if layout == nil {
		return page, nil
	}
	return func(eng *Engine) { layout.Render(eng, page) }, nil
}

// Store persists value under key via the host-supplied hook, if any.
func (r *Router) Store(key string, value Value) error {
	if r.store == nil {
		return nil
	}
	return r.store(key, value)
}

// Load retrieves a previously stored value via the host-supplied hook.
func (r *Router) Load(key string) (Value, bool, error) {
	if r.load == nil {
		return nil, false, nil
	}
	return r.load(key)
}
