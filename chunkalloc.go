package silo

import "sync"

// sizeClass selects between the two fixed chunk block sizes (spec §4.2
// step 3 / §6 ChunkAllocator.alloc(size_class: 0|1)).
type sizeClass uint8

const (
	sizeClassSmall sizeClass = iota // 8 KiB
	sizeClassLarge                  // 16 KiB
	numSizeClasses = int(sizeClassLarge) + 1
)

// ChunkAllocator is the external fixed-size block allocator collaborator
// (§6): alloc/free raw blocks, report the fixed size for a class.
type ChunkAllocator interface {
	Alloc(class sizeClass) []byte
	Free(block []byte)
	MemBlockSize(class sizeClass) int
}

// pooledChunkAllocator is a sync.Pool-backed default ChunkAllocator, one
// pool per size class. Blocks are zeroed on Alloc so a fresh chunk never
// observes another archetype's stale bytes.
type pooledChunkAllocator struct {
	pools [numSizeClasses]sync.Pool
	sizes [numSizeClasses]int
}

// NewPooledChunkAllocator builds a ChunkAllocator for the given small and
// large block sizes (bytes).
func NewPooledChunkAllocator(smallSize, largeSize int) *pooledChunkAllocator {
	a := &pooledChunkAllocator{sizes: [numSizeClasses]int{smallSize, largeSize}}
	for i := range a.pools {
		size := a.sizes[i]
		a.pools[i].New = func() any {
			return make([]byte, size)
		}
	}
	return a
}

func (a *pooledChunkAllocator) Alloc(class sizeClass) []byte {
	block := a.pools[class].Get().([]byte)
	clear(block)
	return block
}

func (a *pooledChunkAllocator) Free(block []byte) {
	class := sizeClassSmall
	if len(block) == a.sizes[sizeClassLarge] {
		class = sizeClassLarge
	}
	a.pools[class].Put(block)
}

func (a *pooledChunkAllocator) MemBlockSize(class sizeClass) int {
	return a.sizes[class]
}
