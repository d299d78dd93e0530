// Package vapor is a compiled UI rendering and reactivity engine that treats
// a retained display surface (the DOM, a native view hierarchy, or a test
// harness) as a thin graphics driver.
//
// Application code describes interfaces with an ordinary imperative builder
// API (see builder.go). Each render pass compiles that description into a
// virtual tree (node.go), reconciles it against the previously retained tree
// (diff.go), and emits three disjoint command sets that a host adapter
// applies to the display surface (commands.go). Four arenas (arena.go) give
// every allocation a lifetime tied to the frame, the current route, the
// session, or the caller, removing per-node bookkeeping from the hot path.
// A single-threaded cooperative driver (reactivity.go) decides when a pass
// runs; a router (router.go) binds paths to render roots and resets the view
// arena on navigation.
package vapor
