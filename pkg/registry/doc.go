// Package registry holds the open camera connections of a process.
//
// A Registry maps opaque connection ids to open device handles. It is safe for
// concurrent use: the id map is guarded by one lock, and each connection has
// its own lock so that operations on one camera never wait for another.
//
// # Lifecycle
//
// A connection id moves through ABSENT, OPEN and CLOSED. Capture, Properties
// and SetProperty hold the connection's lock for the duration of the device
// call. Close removes the id from the map first, then takes the same lock
// before releasing the handle, so it waits for any in-flight operation and no
// caller ever observes a half-closed handle. A closed id is never reopened;
// every later lookup fails with [ErrConnectionNotFound].
//
// QuickCapture opens a transient handle, reads one frame and releases the
// handle on every exit path. It never touches the id map.
//
// Shutdown releases every remaining handle exactly once and leaves the
// registry empty. It is safe to call more than once; after the first call
// Open fails with [ErrShutdown].
package registry
