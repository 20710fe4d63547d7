package silo

// config holds the tunables that the archetype layout solver (§4.2) and
// chunk lifecycle treat as externally supplied constants rather than
// hardcoding. A host world constructs one with DefaultConfig and may
// override any field before the first archetype is created.
type config struct {
	// SmallBlockSize and LargeBlockSize are the two fixed chunk block
	// sizes a ChunkAllocator must support (spec: 8 KiB / 16 KiB).
	SmallBlockSize int
	LargeBlockSize int

	// HeaderSize and ReservedBytes stand in for the bytes a byte-packed
	// port would spend on ChunkHeader and the per-class version/id/record
	// arrays before the entity array begins (spec §4.2 step 1).
	HeaderSize    int
	ReservedBytes int

	// MaxChunkEntities is the hard per-chunk cap for non-root archetypes.
	MaxChunkEntities uint32
	// MaxChunkEntitiesRoot is the cap for archetype 0, the empty-signature
	// root archetype.
	MaxChunkEntitiesRoot uint32

	// DefaultChunkLifespan is the initial Header.LifespanCountdown of
	// every newly allocated chunk. Nothing in this package decrements or
	// reads the countdown: World.Defrag frees a chunk as soon as defrag
	// empties it, and a chunk emptied any other way is kept.
	DefaultChunkLifespan int32
}

// DefaultConfig returns the configuration silo uses unless a caller
// overrides it: 8 KiB / 16 KiB blocks, 512-entity non-root cap, matching
// scenario S1 of the specification.
func DefaultConfig() config {
	return config{
		SmallBlockSize:       8 * 1024,
		LargeBlockSize:       16 * 1024,
		HeaderSize:           64,
		ReservedBytes:        128,
		MaxChunkEntities:     512,
		MaxChunkEntitiesRoot: 16 * 1024,
		DefaultChunkLifespan: 4,
	}
}

// midpoint is the threshold used to decide whether a layout that fits in
// the large block should instead be packed into the small block (spec
// §4.2 step 3).
func (c config) midpoint() int {
	return (c.SmallBlockSize + c.LargeBlockSize) / 2
}
