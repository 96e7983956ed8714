package metablock

import "driftstore/internal/runtime"

// HeaderStore knows how to marshal and persist a StaticHeader to and from
// the file's opaque prefix region. Its own on-disk format is out of scope
// for this package; Manager.ReadHeaders/WriteHeaders simply delegate to
// whatever implementation the caller supplies, keeping the static header's
// own layout a collaborator's concern rather than this package's.
type HeaderStore interface {
	ReadHeader(w *runtime.Worker, done func(StaticHeader, error))
	WriteHeader(w *runtime.Worker, header StaticHeader, done func(error))
}

// StaticHeader is the fixed region at the start of the file that the ring
// sits after. It is written once, at creation, and never rewritten; the
// ring exists precisely so that nothing after startup needs to touch this
// region again. Only the read-only geometry it publishes is kept here;
// any wider ownership a caller needs for the region is its own concern
// (the Manager holds the one copy it needs).
type StaticHeader struct {
	// Geometry is the fixed on-disk layout this header describes.
	Geometry Geometry

	// Magic distinguishes this file's header from an empty or foreign
	// file. It travels with the header (and through a HeaderStore);
	// Manager.Start does not check it.
	Magic uint64
}

// DefaultMagic is the static header's expected magic value for rings
// created by this package.
const DefaultMagic uint64 = 0x6472696674000001 // "drift\x00\x00\x01"
