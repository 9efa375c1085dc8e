package library

import (
	"bytes"
	"encoding/binary"
	"runtime"

	"github.com/dgraph-io/badger/v3"
	"github.com/fine-structures/graphlet/graphlet"
	"github.com/gogo/protobuf/proto"
	"github.com/pkg/errors"
)

/***

Catalog database format:

	gCatalogStateKey => catalogState  (varints: MajorVers, MinorVers, NumPatterns)

	kPatternPrefix, uint32 (big endian library position) => PatternDef

	PatternDef := varint stream:
		NumEdges, [From, To]...
		NumResidual, [From, To]...
		NumGenerators, [CycleLen, [Index]...]...

Keys sort by library position, so a full iteration yields patterns in priority order and a
single pattern is a direct seek.

***/

const (
	kMajorVers = 2024
	kMinorVers = 1

	kPatternPrefix = byte(0x01)
	kPatternKeySz  = 5
)

var (
	gCatalogStateKey = []byte{0x00, 0x00, 0x01}
)

// CatalogOpts specifies how to open a pattern catalog.
type CatalogOpts struct {
	DbPathName string // if empty, the catalog is in-memory
	ReadOnly   bool
}

type catalogState struct {
	MajorVers   uint64
	MinorVers   uint64
	NumPatterns uint64
}

func (state *catalogState) Marshal() []byte {
	buf := proto.NewBuffer(make([]byte, 0, 16))
	buf.EncodeVarint(state.MajorVers)
	buf.EncodeVarint(state.MinorVers)
	buf.EncodeVarint(state.NumPatterns)
	return buf.Bytes()
}

func (state *catalogState) Unmarshal(val []byte) (err error) {
	buf := proto.NewBuffer(val)
	if state.MajorVers, err = buf.DecodeVarint(); err != nil {
		return err
	}
	if state.MinorVers, err = buf.DecodeVarint(); err != nil {
		return err
	}
	state.NumPatterns, err = buf.DecodeVarint()
	return err
}

// Catalog is a badger-backed store of a pattern library.
type Catalog struct {
	db         *badger.DB
	readOnly   bool
	state      catalogState
	stateDirty bool
}

// OpenCatalog opens (or creates) a pattern catalog.
func OpenCatalog(opts CatalogOpts) (*Catalog, error) {
	cat := &Catalog{
		readOnly: opts.ReadOnly,
	}

	dbOpts := badger.DefaultOptions(opts.DbPathName)
	dbOpts.ReadOnly = opts.ReadOnly
	dbOpts.DetectConflicts = false
	dbOpts.Logger = nil
	dbOpts.MetricsEnabled = false

	// Badger for windows currently does not support read-only mode
	if runtime.GOOS == "windows" {
		dbOpts.ReadOnly = false
	}

	if len(opts.DbPathName) == 0 {
		if opts.ReadOnly {
			return nil, errors.Wrap(graphlet.ErrBadCatalogParam, "DbPathName must be specified for a read-only catalog")
		}
		dbOpts.InMemory = true
	}

	var err error
	cat.db, err = badger.Open(dbOpts)
	if err != nil {
		return nil, err
	}

	err = cat.loadState()
	if err == badger.ErrKeyNotFound {
		err = nil
		cat.stateDirty = !cat.readOnly
		cat.state.MajorVers = kMajorVers
		cat.state.MinorVers = kMinorVers
	}

	if err == nil && (cat.state.MajorVers != kMajorVers || cat.state.MinorVers != kMinorVers) {
		err = errors.Wrapf(graphlet.ErrCatalogVersion, "found v%d.%d", cat.state.MajorVers, cat.state.MinorVers)
	}

	if err != nil {
		cat.Close()
		return nil, err
	}

	return cat, nil
}

func (cat *Catalog) loadState() error {
	return cat.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(gCatalogStateKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return cat.state.Unmarshal(val)
		})
	})
}

func (cat *Catalog) flushState() error {
	if !cat.stateDirty {
		return nil
	}
	err := cat.db.Update(func(txn *badger.Txn) error {
		return txn.Set(gCatalogStateKey, cat.state.Marshal())
	})
	if err == nil {
		cat.stateDirty = false
	}
	return err
}

// Close flushes catalog state and closes the underlying db.
func (cat *Catalog) Close() error {
	var err error
	if cat.db != nil {
		err = cat.flushState()
		if closeErr := cat.db.Close(); err == nil {
			err = closeErr
		}
		cat.db = nil
	}
	return err
}

func (cat *Catalog) IsReadOnly() bool {
	return cat.readOnly
}

// NumPatterns returns the number of patterns currently stored.
func (cat *Catalog) NumPatterns() int {
	return int(cat.state.NumPatterns)
}

func formPatternKey(key []byte, pos int) []byte {
	key = append(key, kPatternPrefix)
	key = binary.BigEndian.AppendUint32(key, uint32(pos))
	return key
}

// Import replaces the catalog's contents with the given library.
func (cat *Catalog) Import(lib *Library) error {
	if cat.readOnly {
		return errors.Wrap(graphlet.ErrBadCatalogParam, "catalog is read-only")
	}

	wb := cat.db.NewWriteBatch()
	defer wb.Cancel()

	for i := range lib.patterns {
		key := formPatternKey(make([]byte, 0, kPatternKeySz), i)
		if err := wb.Set(key, marshalPattern(&lib.patterns[i])); err != nil {
			return err
		}
	}

	// Drop entries past the end of the new library
	for i := lib.Len(); i < cat.NumPatterns(); i++ {
		key := formPatternKey(make([]byte, 0, kPatternKeySz), i)
		if err := wb.Delete(key); err != nil {
			return err
		}
	}

	if err := wb.Flush(); err != nil {
		return err
	}

	cat.state.NumPatterns = uint64(lib.Len())
	cat.stateDirty = true
	return cat.flushState()
}

// Library reads every stored pattern in library order.
func (cat *Catalog) Library() (*Library, error) {
	lib := &Library{
		patterns: make([]graphlet.Pattern, 0, cat.NumPatterns()),
	}

	err := cat.db.View(func(txn *badger.Txn) error {
		prefix := []byte{kPatternPrefix}
		it := txn.NewIterator(badger.IteratorOptions{
			PrefetchValues: true,
			PrefetchSize:   300,
			Prefix:         prefix,
		})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			if len(item.Key()) != kPatternKeySz {
				return errors.Errorf("unexpected catalog key %x", item.Key())
			}
			err := item.Value(func(val []byte) error {
				P, err := unmarshalPattern(val)
				if err != nil {
					return err
				}
				P.ID = len(lib.patterns)
				lib.patterns = append(lib.patterns, P)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(lib.patterns) != cat.NumPatterns() {
		return nil, errors.Errorf("catalog holds %d patterns, expected %d", len(lib.patterns), cat.NumPatterns())
	}
	return lib, nil
}

// Pattern reads a single pattern by library position.
func (cat *Catalog) Pattern(id int) (graphlet.Pattern, error) {
	var P graphlet.Pattern

	err := cat.db.View(func(txn *badger.Txn) error {
		seeker := newEasySeeker(txn)
		defer seeker.Close()

		var keyBuf [kPatternKeySz]byte
		return seeker.SeekAndGet(formPatternKey(keyBuf[:0], id), func(val []byte) (err error) {
			P, err = unmarshalPattern(val)
			return err
		})
	})
	if err != nil {
		return graphlet.Pattern{}, errors.Wrapf(err, "pattern %d", id)
	}
	P.ID = id
	return P, nil
}

func marshalPattern(P *graphlet.Pattern) []byte {
	buf := proto.NewBuffer(make([]byte, 0, 8+4*(len(P.Edges)+len(P.Residual))))
	encodeEdges(buf, P.Edges)
	encodeEdges(buf, P.Residual)
	buf.EncodeVarint(uint64(len(P.Generators)))
	for _, cycle := range P.Generators {
		buf.EncodeVarint(uint64(len(cycle)))
		for _, idx := range cycle {
			buf.EncodeVarint(uint64(idx))
		}
	}
	return buf.Bytes()
}

func encodeEdges(buf *proto.Buffer, edges []graphlet.Edge) {
	buf.EncodeVarint(uint64(len(edges)))
	for _, e := range edges {
		buf.EncodeVarint(uint64(e.From))
		buf.EncodeVarint(uint64(e.To))
	}
}

func unmarshalPattern(val []byte) (P graphlet.Pattern, err error) {
	buf := proto.NewBuffer(val)
	if P.Edges, err = decodeEdges(buf); err != nil {
		return
	}
	if P.Residual, err = decodeEdges(buf); err != nil {
		return
	}

	var n uint64
	if n, err = buf.DecodeVarint(); err != nil {
		return
	}
	if n > 0 {
		P.Generators = make([]graphlet.Cycle, n)
	}
	for i := range P.Generators {
		var L uint64
		if L, err = buf.DecodeVarint(); err != nil {
			return
		}
		cycle := make(graphlet.Cycle, L)
		for j := range cycle {
			var idx uint64
			if idx, err = buf.DecodeVarint(); err != nil {
				return
			}
			cycle[j] = graphlet.NodeID(idx)
		}
		P.Generators[i] = cycle
	}
	return
}

func decodeEdges(buf *proto.Buffer) ([]graphlet.Edge, error) {
	n, err := buf.DecodeVarint()
	if err != nil {
		return nil, err
	}
	edges := make([]graphlet.Edge, n)
	for i := range edges {
		u, err := buf.DecodeVarint()
		if err != nil {
			return nil, err
		}
		v, err := buf.DecodeVarint()
		if err != nil {
			return nil, err
		}
		edges[i] = graphlet.Edge{From: graphlet.NodeID(u), To: graphlet.NodeID(v)}
	}
	return edges, nil
}

type easySeeker struct {
	*badger.Iterator
}

func newEasySeeker(txn *badger.Txn) easySeeker {
	itr := txn.NewIterator(badger.IteratorOptions{
		PrefetchValues: false,
	})
	return easySeeker{itr}
}

func (seeker easySeeker) SeekAndGet(prefix []byte, getter func(val []byte) error) error {
	seeker.Seek(prefix)
	if seeker.Valid() {
		item := seeker.Item()
		if bytes.HasPrefix(item.Key(), prefix) {
			return item.Value(getter)
		}
	}
	return badger.ErrKeyNotFound
}
