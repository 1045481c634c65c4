// Package arena holds materialized Partitions between operators, keyed by the id of the
// plan node which produced them and a sequence number. Only a bounded number of
// Partitions stay resident; the least recently parked are spilled as zstd-compressed
// bytes, in memory or on disk, and restored transparently when taken.
package arena

import (
	"container/list"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/docker/docker/pkg/locker"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/internal/partition"
	"github.com/spf13/afero"
)

const defaultInMemoryPartitions = 64

// Key addresses a Partition in an Arena
type Key struct {
	Node int
	Seq  int
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%d", k.Node, k.Seq)
}

// Config configures an Arena
type Config struct {
	InMemoryPartitions int      // The number of resident Partitions. Defaults to 64.
	TempDir            string   // If set, spilled Partitions are written to files within this directory
	Fs                 afero.Fs // The filesystem containing TempDir. Defaults to the OS filesystem.
}

type resident struct {
	key  Key
	part sifplan.Partition
}

type spilled struct {
	schema sifplan.Schema
	data   []byte // set when spilled to memory
	path   string // set when spilled to disk
}

// Arena stores Partitions until they are taken. Each Partition is taken at most once.
type Arena struct {
	config     Config
	logger     log.Logger
	serializer *partition.ZstdPartitionSerializer
	plocks     *locker.Locker
	lock       sync.Mutex
	pmap       map[Key]*list.Element
	recent     *list.List // back is oldest, front is newest
	spilled    map[Key]*spilled
}

// New produces an Arena
func New(config Config, logger log.Logger) (*Arena, error) {
	if config.InMemoryPartitions == 0 {
		config.InMemoryPartitions = defaultInMemoryPartitions
	}
	if config.InMemoryPartitions < 0 {
		return nil, fmt.Errorf("InMemoryPartitions %d must not be negative", config.InMemoryPartitions)
	}
	if config.Fs == nil {
		config.Fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	serializer, err := partition.NewZstdPartitionSerializer()
	if err != nil {
		return nil, fmt.Errorf("unable to initialize compressor: %w", err)
	}
	return &Arena{
		config:     config,
		logger:     logger,
		serializer: serializer,
		plocks:     locker.New(),
		pmap:       make(map[Key]*list.Element),
		recent:     list.New(),
		spilled:    make(map[Key]*spilled),
	}, nil
}

// Put parks a Partition under a Key which must not already be in use
func (a *Arena) Put(key Key, part sifplan.Partition) error {
	a.plocks.Lock(key.String())
	defer a.plocks.Unlock(key.String())

	a.lock.Lock()
	_, isResident := a.pmap[key]
	_, isSpilled := a.spilled[key]
	if isResident || isSpilled {
		a.lock.Unlock()
		return fmt.Errorf("partition %s is already in the arena", key)
	}
	a.pmap[key] = a.recent.PushFront(&resident{key: key, part: part})
	var evicted []*resident
	for a.recent.Len() > a.config.InMemoryPartitions {
		oldest := a.recent.Back()
		a.recent.Remove(oldest)
		r := oldest.Value.(*resident)
		delete(a.pmap, r.key)
		evicted = append(evicted, r)
	}
	a.lock.Unlock()

	for _, r := range evicted {
		if err := a.spill(r); err != nil {
			return err
		}
	}
	return nil
}

// spill compresses an evicted Partition, writing it to disk if configured to do so
func (a *Arena) spill(r *resident) error {
	data, err := a.serializer.Compress(r.part)
	if err != nil {
		return fmt.Errorf("unable to compress partition %s: %w", r.key, err)
	}
	entry := &spilled{schema: r.part.Schema()}
	if len(a.config.TempDir) > 0 {
		f, err := afero.TempFile(a.config.Fs, a.config.TempDir, "sifplan-spill-*.zst")
		if err != nil {
			return fmt.Errorf("unable to create spill file for partition %s: %w", r.key, err)
		}
		_, err = f.Write(data)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("unable to write spill file for partition %s: %w", r.key, err)
		}
		entry.path = f.Name()
	} else {
		entry.data = data
	}
	a.lock.Lock()
	a.spilled[r.key] = entry
	a.lock.Unlock()
	level.Debug(a.logger).Log("msg", "spilled partition", "node", r.key.Node, "seq", r.key.Seq, "rows", r.part.GetNumRows(), "bytes", len(data), "path", entry.path)
	return nil
}

// Take removes a Partition from the Arena and returns it
func (a *Arena) Take(key Key) (sifplan.Partition, error) {
	a.plocks.Lock(key.String())
	defer a.plocks.Unlock(key.String())

	a.lock.Lock()
	if e, ok := a.pmap[key]; ok {
		delete(a.pmap, key)
		a.recent.Remove(e)
		a.lock.Unlock()
		return e.Value.(*resident).part, nil
	}
	entry, ok := a.spilled[key]
	delete(a.spilled, key)
	a.lock.Unlock()
	if !ok {
		return nil, fmt.Errorf("partition %s is not in the arena", key)
	}
	return a.restore(key, entry)
}

func (a *Arena) restore(key Key, entry *spilled) (sifplan.Partition, error) {
	data := entry.data
	if len(entry.path) > 0 {
		f, err := a.config.Fs.Open(entry.path)
		if err != nil {
			return nil, fmt.Errorf("unable to load spilled partition %s: %w", key, err)
		}
		data, err = io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("unable to load spilled partition %s: %w", key, err)
		}
		if err = a.config.Fs.Remove(entry.path); err != nil {
			level.Warn(a.logger).Log("msg", "unable to remove spill file", "path", entry.path, "err", err)
		}
	}
	part, err := a.serializer.Decompress(data, entry.schema)
	if err != nil {
		return nil, fmt.Errorf("unable to decompress spilled partition %s: %w", key, err)
	}
	return part, nil
}

// Len returns the number of Partitions in the Arena
func (a *Arena) Len() int {
	a.lock.Lock()
	defer a.lock.Unlock()
	return len(a.pmap) + len(a.spilled)
}

// Spilled returns the number of Partitions in the Arena which are not resident
func (a *Arena) Spilled() int {
	a.lock.Lock()
	defer a.lock.Unlock()
	return len(a.spilled)
}

// Close discards every Partition in the Arena, removing spill files
func (a *Arena) Close() error {
	a.lock.Lock()
	defer a.lock.Unlock()
	var firstErr error
	for key, entry := range a.spilled {
		if len(entry.path) > 0 {
			if err := a.config.Fs.Remove(entry.path); err != nil && !os.IsNotExist(err) && firstErr == nil {
				firstErr = err
			}
		}
		delete(a.spilled, key)
	}
	a.pmap = make(map[Key]*list.Element)
	a.recent.Init()
	a.serializer.Close()
	return firstErr
}

// NodeSpill is a view of an Arena restricted to the Partitions of one plan node
type NodeSpill struct {
	arena *Arena
	node  int
}

// ForNode returns a view of this Arena which addresses Partitions by sequence number alone
func (a *Arena) ForNode(node int) *NodeSpill {
	return &NodeSpill{arena: a, node: node}
}

// Put parks a Partition
func (ns *NodeSpill) Put(seq int, part sifplan.Partition) error {
	return ns.arena.Put(Key{Node: ns.node, Seq: seq}, part)
}

// Take removes a Partition and returns it
func (ns *NodeSpill) Take(seq int) (sifplan.Partition, error) {
	return ns.arena.Take(Key{Node: ns.node, Seq: seq})
}
