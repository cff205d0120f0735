package ingest

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/kelindar/binary"
	"github.com/lintang-b-s/graphextract/pkg/model"
	"golang.org/x/time/rate"
)

// badgerWriteRateLimit bounds how many single-key transactions Put commits
// per second. A large PBF extract can carry tens of millions of nodes; left
// unbounded, one-txn-per-node floods badger's write path faster than its
// background compaction can keep up, growing the LSM tree's write
// amplification over the run. The limit is generous enough that a memory
// cache's rate never approaches it, but the disk-backed cache never
// outruns compaction either.
const badgerWriteRateLimit = 200_000

// LocationCache indexes node coordinates so later way entities can resolve
// geometry (spec.md 2, component B). Put is called only from phase 2's
// serial-in-order sink stage (spec.md 5's shared-resource policy); Get is
// called by extract.PrepareData after ingestion has finished.
type LocationCache interface {
	Put(nodeID int64, lon, lat float64)
	Get(nodeID int64) (model.Coordinate, bool)
	Close() error
}

// memoryLocationCache is the default, in-process cache: a plain map,
// adequate for extracts that fit comfortably in RAM.
type memoryLocationCache struct {
	coords map[int64]model.Coordinate
}

func NewMemoryLocationCache() LocationCache {
	return &memoryLocationCache{coords: make(map[int64]model.Coordinate)}
}

func (c *memoryLocationCache) Put(nodeID int64, lon, lat float64) {
	c.coords[nodeID] = model.NewCoordinateFromDegrees(lon, lat)
}

func (c *memoryLocationCache) Get(nodeID int64) (model.Coordinate, bool) {
	v, ok := c.coords[nodeID]
	return v, ok
}

func (c *memoryLocationCache) Close() error { return nil }

// badgerLocationCache spills node coordinates to disk via badger, used when
// UseLocationsCache is set for datasets too large to hold every node
// coordinate in memory, grounded on the teacher's pkg/kv key-value store.
type badgerLocationCache struct {
	db      *badger.DB
	limiter *rate.Limiter
}

func NewBadgerLocationCache(dir string) (LocationCache, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, err
	}
	return &badgerLocationCache{
		db:      db,
		limiter: rate.NewLimiter(rate.Limit(badgerWriteRateLimit), badgerWriteRateLimit/10),
	}, nil
}

func nodeKey(nodeID int64) []byte {
	key := make([]byte, 8)
	for i := 0; i < 8; i++ {
		key[i] = byte(nodeID >> (8 * i))
	}
	return key
}

func (c *badgerLocationCache) Put(nodeID int64, lon, lat float64) {
	_ = c.limiter.Wait(context.Background())

	coord := model.NewCoordinateFromDegrees(lon, lat)
	val, err := binary.Marshal(coord)
	if err != nil {
		return
	}
	_ = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(nodeKey(nodeID), val)
	})
}

func (c *badgerLocationCache) Get(nodeID int64) (model.Coordinate, bool) {
	var coord model.Coordinate
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(nodeKey(nodeID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return binary.Unmarshal(val, &coord)
		})
	})
	if err != nil {
		return model.Coordinate{}, false
	}
	return coord, true
}

func (c *badgerLocationCache) Close() error { return c.db.Close() }
