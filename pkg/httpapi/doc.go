// Package httpapi is the thin HTTP/JSON adapter each node's pvcd exposes
// at /api/v1: it validates requests, reads through *entity.Registry,
// writes through *entity.Writer, and drives *migration.Controller,
// *nodestate.Machine, and *taskbus.Bus for the handful of operations
// that do actual work rather than just persist a target state.
//
// It deliberately does not talk to pkg/coord, pkg/libvirt, or
// pkg/storageexec directly — every handler goes through one of the
// narrower component interfaces above, the same separation the node
// daemon's own reconciler loops use, so the HTTP surface can never
// race a reconciler by mutating coordination state through a side
// door.
//
// Routing uses the standard library's net/http.ServeMux with Go 1.22's
// method+pattern syntax ("POST /vm/{name}/state"): this surface is plain
// HTTP/JSON with an optional X-Api-Key header, not an RPC boundary.
package httpapi
