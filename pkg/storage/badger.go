package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/ProdFact/telamentis/pkg/graph"
)

// Key prefixes for BadgerDB storage organization.
// Single-byte prefixes keep keys short; 0x00 separates variable-length parts.
const (
	prefixNode        = byte(0x01) // node id -> nodeRecord
	prefixEdge        = byte(0x02) // edge id -> edgeRecord
	prefixTenantNodes = byte(0x03) // tenant 0x00 node id -> {}
	prefixTenantEdges = byte(0x04) // tenant 0x00 edge id -> {}
	prefixAlias       = byte(0x05) // tenant 0x00 alias -> node id
	prefixLabel       = byte(0x06) // tenant 0x00 label 0x00 node id -> {}
	prefixEdgesFrom   = byte(0x07) // from id + edge id -> {}
	prefixEdgesTo     = byte(0x08) // to id + edge id -> {}
)

// nodeRecord is the persisted form of a node: value plus owner.
type nodeRecord struct {
	Node      graph.Node     `json:"node"`
	Tenant    graph.TenantID `json:"tenant"`
	CreatedAt time.Time      `json:"created_at"`
}

// edgeRecord is the persisted form of an edge version.
type edgeRecord struct {
	Edge   graph.TimeEdge `json:"edge"`
	Tenant graph.TenantID `json:"tenant"`
}

// BadgerOptions configures the persistent store.
type BadgerOptions struct {
	// DataDir is where BadgerDB keeps its LSM tree and value log.
	DataDir string
	// InMemory runs Badger without touching disk. Useful in tests.
	InMemory bool
	// SyncWrites forces an fsync per commit for maximum durability.
	SyncWrites bool
	// Logger receives store warnings. Defaults to slog.Default().
	Logger *slog.Logger
}

// BadgerStore is the disk-backed GraphStore implementation.
//
// It satisfies the same contract as MemoryStore — alias idempotence,
// endpoint validation, cross-tenant masking, cascade delete, append-only
// bitemporal edges — with the six derived indices expressed as key prefixes
// instead of in-process maps. Transactionality comes from Badger: every
// operation runs inside a single Update or View transaction, so indices and
// primary records move together or not at all.
//
// Memory tuning mirrors container-friendly defaults: small memtables, small
// caches, values above 1KB in the value log.
type BadgerStore struct {
	db     *badger.DB
	logger *slog.Logger
}

// NewBadgerStore opens (or creates) a persistent store at dataDir.
func NewBadgerStore(dataDir string) (*BadgerStore, error) {
	return NewBadgerStoreWithOptions(BadgerOptions{DataDir: dataDir})
}

// NewBadgerStoreWithOptions opens a store with explicit options.
func NewBadgerStoreWithOptions(opts BadgerOptions) (*BadgerStore, error) {
	badgerOpts := badger.DefaultOptions(opts.DataDir)
	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true).WithDir("").WithValueDir("")
	}
	if opts.SyncWrites {
		badgerOpts = badgerOpts.WithSyncWrites(true)
	}
	badgerOpts = badgerOpts.
		WithLogger(nil).
		WithMemTableSize(16 << 20).
		WithValueLogFileSize(64 << 20).
		WithNumMemtables(2).
		WithNumLevelZeroTables(2).
		WithNumLevelZeroTablesStall(4).
		WithValueThreshold(1024).
		WithBlockCacheSize(32 << 20).
		WithIndexCacheSize(16 << 20)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: opening badger at %q: %v", graph.ErrConnectionFailed, opts.DataDir, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &BadgerStore{db: db, logger: logger}, nil
}

// NewBadgerStoreInMemory opens a volatile Badger store. Tests use this to
// exercise the persistent code path without disk I/O.
func NewBadgerStoreInMemory() (*BadgerStore, error) {
	return NewBadgerStoreWithOptions(BadgerOptions{InMemory: true})
}

// ----------------------------------------------------------------------------
// Key encoding
// ----------------------------------------------------------------------------

func nodeKey(id uuid.UUID) []byte {
	return append([]byte{prefixNode}, id[:]...)
}

func edgeKey(id uuid.UUID) []byte {
	return append([]byte{prefixEdge}, id[:]...)
}

func tenantScopedKey(prefix byte, tenant graph.TenantID, id uuid.UUID) []byte {
	key := make([]byte, 0, 1+len(tenant)+1+16)
	key = append(key, prefix)
	key = append(key, []byte(tenant)...)
	key = append(key, 0x00)
	key = append(key, id[:]...)
	return key
}

func tenantScopedPrefix(prefix byte, tenant graph.TenantID) []byte {
	key := make([]byte, 0, 1+len(tenant)+1)
	key = append(key, prefix)
	key = append(key, []byte(tenant)...)
	key = append(key, 0x00)
	return key
}

func aliasIndexKey(tenant graph.TenantID, alias string) []byte {
	key := make([]byte, 0, 1+len(tenant)+1+len(alias))
	key = append(key, prefixAlias)
	key = append(key, []byte(tenant)...)
	key = append(key, 0x00)
	key = append(key, []byte(alias)...)
	return key
}

func labelIndexKey(tenant graph.TenantID, label string, id uuid.UUID) []byte {
	key := make([]byte, 0, 1+len(tenant)+1+len(label)+1+16)
	key = append(key, prefixLabel)
	key = append(key, []byte(tenant)...)
	key = append(key, 0x00)
	key = append(key, []byte(label)...)
	key = append(key, 0x00)
	key = append(key, id[:]...)
	return key
}

func labelIndexPrefix(tenant graph.TenantID, label string) []byte {
	key := make([]byte, 0, 1+len(tenant)+1+len(label)+1)
	key = append(key, prefixLabel)
	key = append(key, []byte(tenant)...)
	key = append(key, 0x00)
	key = append(key, []byte(label)...)
	key = append(key, 0x00)
	return key
}

func adjacencyKey(prefix byte, nodeID, edgeID uuid.UUID) []byte {
	key := make([]byte, 0, 1+32)
	key = append(key, prefix)
	key = append(key, nodeID[:]...)
	key = append(key, edgeID[:]...)
	return key
}

func adjacencyPrefix(prefix byte, nodeID uuid.UUID) []byte {
	key := make([]byte, 0, 1+16)
	key = append(key, prefix)
	key = append(key, nodeID[:]...)
	return key
}

// idFromKeySuffix extracts the trailing 16-byte uuid from an index key.
func idFromKeySuffix(key []byte) (uuid.UUID, bool) {
	if len(key) < 16 {
		return uuid.Nil, false
	}
	var id uuid.UUID
	copy(id[:], key[len(key)-16:])
	return id, true
}

func mapBadgerErr(err error) error {
	switch {
	case err == nil:
		return nil
	// Errors already classified by the graph taxonomy pass through.
	case errors.Is(err, graph.ErrNodeNotFound),
		errors.Is(err, graph.ErrConstraintViolation),
		errors.Is(err, graph.ErrQueryFailed),
		errors.Is(err, graph.ErrDatabase):
		return err
	case errors.Is(err, badger.ErrConflict):
		return fmt.Errorf("%w: %v", graph.ErrTransactionFailed, err)
	case errors.Is(err, badger.ErrDBClosed):
		return graph.Databasef("store closed")
	default:
		return fmt.Errorf("%w: %v", graph.ErrDatabase, err)
	}
}

// ----------------------------------------------------------------------------
// Record access inside a transaction
// ----------------------------------------------------------------------------

func getNodeRecord(txn *badger.Txn, id uuid.UUID) (*nodeRecord, error) {
	item, err := txn.Get(nodeKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec nodeRecord
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return nil, fmt.Errorf("unmarshaling node %s: %w", id, err)
	}
	return &rec, nil
}

func getEdgeRecord(txn *badger.Txn, id uuid.UUID) (*edgeRecord, error) {
	item, err := txn.Get(edgeKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec edgeRecord
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return nil, fmt.Errorf("unmarshaling edge %s: %w", id, err)
	}
	return &rec, nil
}

func putNodeRecord(txn *badger.Txn, id uuid.UUID, rec *nodeRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling node %s: %w", id, err)
	}
	return txn.Set(nodeKey(id), data)
}

func putEdgeRecord(txn *badger.Txn, id uuid.UUID, rec *edgeRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling edge %s: %w", id, err)
	}
	return txn.Set(edgeKey(id), data)
}

// scanIDs collects the uuids suffixed onto keys under prefix.
func scanIDs(txn *badger.Txn, prefix []byte) []uuid.UUID {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	var ids []uuid.UUID
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		key := it.Item().Key()
		if id, ok := idFromKeySuffix(key); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// ----------------------------------------------------------------------------
// GraphStore implementation
// ----------------------------------------------------------------------------

// UpsertNode implements GraphStore. Same alias semantics as MemoryStore,
// including the label-bucket move when an alias overwrite changes the label.
func (b *BadgerStore) UpsertNode(ctx context.Context, tenant graph.TenantID, node graph.Node) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}

	var id uuid.UUID
	err := b.db.Update(func(txn *badger.Txn) error {
		if node.Alias != "" {
			item, err := txn.Get(aliasIndexKey(tenant, node.Alias))
			if err == nil {
				var existingID uuid.UUID
				if err := item.Value(func(val []byte) error {
					copy(existingID[:], val)
					return nil
				}); err != nil {
					return err
				}
				rec, err := getNodeRecord(txn, existingID)
				if err != nil {
					return err
				}
				if rec == nil {
					return graph.Databasef("inconsistent alias index for %q", node.Alias)
				}
				if rec.Node.Label != node.Label {
					if err := txn.Delete(labelIndexKey(tenant, rec.Node.Label, existingID)); err != nil {
						return err
					}
					if err := txn.Set(labelIndexKey(tenant, node.Label, existingID), nil); err != nil {
						return err
					}
				}
				rec.Node.Label = node.Label
				rec.Node.Props = deepCopyProps(node.Props)
				id = existingID
				return putNodeRecord(txn, existingID, rec)
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}

		id = uuid.New()
		rec := &nodeRecord{Node: node, Tenant: tenant, CreatedAt: time.Now().UTC()}
		if err := putNodeRecord(txn, id, rec); err != nil {
			return err
		}
		if err := txn.Set(tenantScopedKey(prefixTenantNodes, tenant, id), nil); err != nil {
			return err
		}
		if node.Alias != "" {
			if err := txn.Set(aliasIndexKey(tenant, node.Alias), id[:]); err != nil {
				return err
			}
		}
		return txn.Set(labelIndexKey(tenant, node.Label, id), nil)
	})
	if err != nil {
		return uuid.Nil, mapBadgerErr(err)
	}
	return id, nil
}

// UpsertEdge implements GraphStore with the same supersede-on-update
// semantics as MemoryStore.
func (b *BadgerStore) UpsertEdge(ctx context.Context, tenant graph.TenantID, edge graph.TimeEdge) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}

	if edge.ValidTo != nil && edge.ValidTo.Before(edge.ValidFrom) {
		return uuid.Nil, graph.ConstraintViolationf("valid_from after valid_to")
	}
	if edge.TxEnd != nil && !edge.TxStart.IsZero() && edge.TxEnd.Before(edge.TxStart) {
		return uuid.Nil, graph.ConstraintViolationf("transaction_start after transaction_end")
	}

	var id uuid.UUID
	err := b.db.Update(func(txn *badger.Txn) error {
		from, err := getNodeRecord(txn, edge.FromID)
		if err != nil {
			return err
		}
		if from == nil || from.Tenant != tenant {
			return graph.NodeNotFoundf("from node %s not found in tenant %s", edge.FromID, tenant)
		}
		to, err := getNodeRecord(txn, edge.ToID)
		if err != nil {
			return err
		}
		if to == nil || to.Tenant != tenant {
			return graph.NodeNotFoundf("to node %s not found in tenant %s", edge.ToID, tenant)
		}

		now := time.Now().UTC()
		if edge.TxStart.IsZero() {
			edge.TxStart = now
		}

		// Close the prior current version of this relationship.
		for _, priorID := range scanIDs(txn, adjacencyPrefix(prefixEdgesFrom, edge.FromID)) {
			prior, err := getEdgeRecord(txn, priorID)
			if err != nil {
				return err
			}
			if prior == nil || prior.Tenant != tenant {
				continue
			}
			if prior.Edge.ToID == edge.ToID && prior.Edge.Kind == edge.Kind && prior.Edge.IsCurrentVersion() {
				end := now
				prior.Edge.TxEnd = &end
				if err := putEdgeRecord(txn, priorID, prior); err != nil {
					return err
				}
			}
		}

		id = uuid.New()
		if err := putEdgeRecord(txn, id, &edgeRecord{Edge: edge, Tenant: tenant}); err != nil {
			return err
		}
		if err := txn.Set(tenantScopedKey(prefixTenantEdges, tenant, id), nil); err != nil {
			return err
		}
		if err := txn.Set(adjacencyKey(prefixEdgesFrom, edge.FromID, id), nil); err != nil {
			return err
		}
		return txn.Set(adjacencyKey(prefixEdgesTo, edge.ToID, id), nil)
	})
	if err != nil {
		return uuid.Nil, mapBadgerErr(err)
	}
	return id, nil
}

// GetNode implements GraphStore.
func (b *BadgerStore) GetNode(ctx context.Context, tenant graph.TenantID, id uuid.UUID) (*graph.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var node *graph.Node
	err := b.db.View(func(txn *badger.Txn) error {
		rec, err := getNodeRecord(txn, id)
		if err != nil {
			return err
		}
		if rec == nil || rec.Tenant != tenant {
			return nil
		}
		n := rec.Node
		node = &n
		return nil
	})
	if err != nil {
		return nil, mapBadgerErr(err)
	}
	return node, nil
}

// GetNodeByAlias implements GraphStore.
func (b *BadgerStore) GetNodeByAlias(ctx context.Context, tenant graph.TenantID, alias string) (uuid.UUID, *graph.Node, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, nil, err
	}

	var (
		id   uuid.UUID
		node *graph.Node
	)
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(aliasIndexKey(tenant, alias))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			copy(id[:], val)
			return nil
		}); err != nil {
			return err
		}
		rec, err := getNodeRecord(txn, id)
		if err != nil {
			return err
		}
		if rec == nil {
			return graph.Databasef("inconsistent alias index for %q", alias)
		}
		n := rec.Node
		node = &n
		return nil
	})
	if err != nil {
		return uuid.Nil, nil, mapBadgerErr(err)
	}
	if node == nil {
		return uuid.Nil, nil, nil
	}
	return id, node, nil
}

// DeleteNode implements GraphStore with cascade to incident edges.
func (b *BadgerStore) DeleteNode(ctx context.Context, tenant graph.TenantID, id uuid.UUID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	deleted := false
	err := b.db.Update(func(txn *badger.Txn) error {
		rec, err := getNodeRecord(txn, id)
		if err != nil {
			return err
		}
		if rec == nil || rec.Tenant != tenant {
			return nil
		}

		incident := make(map[uuid.UUID]struct{})
		for _, edgeID := range scanIDs(txn, adjacencyPrefix(prefixEdgesFrom, id)) {
			incident[edgeID] = struct{}{}
		}
		for _, edgeID := range scanIDs(txn, adjacencyPrefix(prefixEdgesTo, id)) {
			incident[edgeID] = struct{}{}
		}
		for edgeID := range incident {
			if err := deleteEdgeInTxn(txn, tenant, edgeID); err != nil {
				return err
			}
		}

		if err := txn.Delete(tenantScopedKey(prefixTenantNodes, tenant, id)); err != nil {
			return err
		}
		if rec.Node.Alias != "" {
			if err := txn.Delete(aliasIndexKey(tenant, rec.Node.Alias)); err != nil {
				return err
			}
		}
		if err := txn.Delete(labelIndexKey(tenant, rec.Node.Label, id)); err != nil {
			return err
		}
		if err := txn.Delete(nodeKey(id)); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, mapBadgerErr(err)
	}
	return deleted, nil
}

// DeleteEdge implements GraphStore.
func (b *BadgerStore) DeleteEdge(ctx context.Context, tenant graph.TenantID, id uuid.UUID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	deleted := false
	err := b.db.Update(func(txn *badger.Txn) error {
		rec, err := getEdgeRecord(txn, id)
		if err != nil {
			return err
		}
		if rec == nil || rec.Tenant != tenant {
			return nil
		}
		if err := deleteEdgeInTxn(txn, tenant, id); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, mapBadgerErr(err)
	}
	return deleted, nil
}

func deleteEdgeInTxn(txn *badger.Txn, tenant graph.TenantID, id uuid.UUID) error {
	rec, err := getEdgeRecord(txn, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}
	if err := txn.Delete(tenantScopedKey(prefixTenantEdges, tenant, id)); err != nil {
		return err
	}
	if err := txn.Delete(adjacencyKey(prefixEdgesFrom, rec.Edge.FromID, id)); err != nil {
		return err
	}
	if err := txn.Delete(adjacencyKey(prefixEdgesTo, rec.Edge.ToID, id)); err != nil {
		return err
	}
	return txn.Delete(edgeKey(id))
}

// GetNodeHistory implements GraphStore. Node versions are not persisted;
// the current node comes back as a singleton.
func (b *BadgerStore) GetNodeHistory(ctx context.Context, tenant graph.TenantID, id uuid.UUID) ([]graph.Node, error) {
	node, err := b.GetNode(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return []graph.Node{}, nil
	}
	return []graph.Node{*node}, nil
}

// Query implements GraphStore over the same closed algebra as MemoryStore.
func (b *BadgerStore) Query(ctx context.Context, tenant graph.TenantID, q graph.Query) ([]graph.Path, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch query := q.(type) {
	case graph.FindNodes:
		return b.findNodes(tenant, query)

	case graph.FindRelationships:
		return b.findRelationships(tenant, query)

	case graph.AsOf:
		rewritten, ok := graph.RewriteAsOf(query.Base, query.Timestamp)
		if !ok {
			b.logger.Warn("as-of rewrite undefined for base query variant, returning empty result",
				"tenant", tenant, "as_of", query.Timestamp)
			return []graph.Path{}, nil
		}
		return b.findRelationships(tenant, rewritten.(graph.FindRelationships))

	case graph.Raw:
		return nil, graph.QueryFailedf("raw queries not supported by the badger store")

	default:
		return nil, graph.QueryFailedf("unknown query variant %T", q)
	}
}

func (b *BadgerStore) findNodes(tenant graph.TenantID, q graph.FindNodes) ([]graph.Path, error) {
	paths := []graph.Path{}
	err := b.db.View(func(txn *badger.Txn) error {
		var candidates []uuid.UUID
		if len(q.Labels) == 0 {
			candidates = scanIDs(txn, tenantScopedPrefix(prefixTenantNodes, tenant))
		} else {
			seen := make(map[uuid.UUID]struct{})
			for _, label := range q.Labels {
				for _, id := range scanIDs(txn, labelIndexPrefix(tenant, label)) {
					if _, dup := seen[id]; dup {
						continue
					}
					seen[id] = struct{}{}
					candidates = append(candidates, id)
				}
			}
		}

		for _, id := range candidates {
			rec, err := getNodeRecord(txn, id)
			if err != nil {
				return err
			}
			if rec == nil || rec.Tenant != tenant {
				continue
			}
			if !propsMatch(rec.Node.Props, q.Properties) {
				continue
			}
			paths = append(paths, graph.Path{
				Nodes: []graph.PathNode{{
					ID:         id,
					Labels:     []string{rec.Node.Label},
					Properties: rec.Node.Props,
				}},
			})
			if q.Limit > 0 && len(paths) >= q.Limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, mapBadgerErr(err)
	}
	return paths, nil
}

func (b *BadgerStore) findRelationships(tenant graph.TenantID, q graph.FindRelationships) ([]graph.Path, error) {
	paths := []graph.Path{}
	err := b.db.View(func(txn *badger.Txn) error {
		var candidates []uuid.UUID
		switch {
		case q.FromID != nil:
			candidates = scanIDs(txn, adjacencyPrefix(prefixEdgesFrom, *q.FromID))
		case q.ToID != nil:
			candidates = scanIDs(txn, adjacencyPrefix(prefixEdgesTo, *q.ToID))
		default:
			candidates = scanIDs(txn, tenantScopedPrefix(prefixTenantEdges, tenant))
		}

		for _, id := range candidates {
			rec, err := getEdgeRecord(txn, id)
			if err != nil {
				return err
			}
			if rec == nil || rec.Tenant != tenant {
				continue
			}
			edge := rec.Edge
			if !edge.IsCurrentVersion() {
				continue
			}
			if q.FromID != nil && edge.FromID != *q.FromID {
				continue
			}
			if q.ToID != nil && edge.ToID != *q.ToID {
				continue
			}
			if len(q.Types) > 0 && !containsString(q.Types, edge.Kind) {
				continue
			}
			if q.ValidAt != nil && !edge.WasValidAt(*q.ValidAt) {
				continue
			}

			from, err := getNodeRecord(txn, edge.FromID)
			if err != nil {
				return err
			}
			to, err := getNodeRecord(txn, edge.ToID)
			if err != nil {
				return err
			}
			if from == nil || to == nil {
				continue
			}

			props := deepCopyProps(edge.Props)
			props["valid_from"] = edge.ValidFrom.UTC().Format(time.RFC3339Nano)
			if edge.ValidTo != nil {
				props["valid_to"] = edge.ValidTo.UTC().Format(time.RFC3339Nano)
			}
			paths = append(paths, graph.Path{
				Nodes: []graph.PathNode{
					{ID: edge.FromID, Labels: []string{from.Node.Label}, Properties: from.Node.Props},
					{ID: edge.ToID, Labels: []string{to.Node.Label}, Properties: to.Node.Props},
				},
				Relationships: []graph.PathRelationship{{
					ID:         id,
					Type:       edge.Kind,
					StartID:    edge.FromID,
					EndID:      edge.ToID,
					Properties: props,
				}},
			})
			if q.Limit > 0 && len(paths) >= q.Limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, mapBadgerErr(err)
	}
	return paths, nil
}

// HealthCheck implements GraphStore.
func (b *BadgerStore) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.db.IsClosed() {
		return graph.Databasef("store closed")
	}
	return nil
}

// Close implements GraphStore.
func (b *BadgerStore) Close() error {
	return b.db.Close()
}
