// Package catalog resolves repository handles to human readable names by
// querying the DSpace Postgres database. It is used to add debugging columns
// to the BMET CSV.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/agentic-research/eraload/internal/faults"
	"github.com/agentic-research/eraload/internal/membership"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	"go.uber.org/zap"
)

var _ membership.Enricher = (*Resolver)(nil)

// Open connects to the catalog database and checks it is reachable.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping catalog: %w", err)
	}
	return db, nil
}

// NameStorage says where collection and community names live.
type NameStorage int

const (
	// NamesInTable: names are columns of the collection/community tables
	// (DSpace 4 and earlier).
	NamesInTable NameStorage = iota
	// NamesInMetadata: names are dc.title rows in metadatavalue (DSpace 5+).
	NamesInMetadata
)

func (s NameStorage) String() string {
	if s == NamesInMetadata {
		return "metadata"
	}
	return "table"
}

const nameColumnCount = `SELECT count(*) FROM information_schema.columns
WHERE table_name = 'collection' AND column_name = 'name'`

// DetectNameStorage inspects the schema once. The result is passed to
// NewResolver.
func DetectNameStorage(ctx context.Context, db *sql.DB) (NameStorage, error) {
	rows, err := db.QueryContext(ctx, nameColumnCount)
	if err != nil {
		return 0, fmt.Errorf("detect name storage: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var (
		n     int
		count int64
	)
	for rows.Next() {
		n++
		if err := rows.Scan(&count); err != nil {
			return 0, fmt.Errorf("detect name storage: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("detect name storage: %w", err)
	}
	if n != 1 {
		return 0, fmt.Errorf("detect name storage: count query returned %d rows, expected 1", n)
	}
	switch count {
	case 0:
		return NamesInMetadata, nil
	case 1:
		return NamesInTable, nil
	default:
		return 0, fmt.Errorf("detect name storage: column count must be 0 or 1, got %d", count)
	}
}

// resourceKind is a DSpace object type as recorded in handle.resource_type_id.
type resourceKind struct {
	name   string
	typeID int
}

var (
	resourceItem       = resourceKind{name: "item", typeID: 2}
	resourceCollection = resourceKind{name: "collection", typeID: 3}
	resourceCommunity  = resourceKind{name: "community", typeID: 4}
)

const (
	titleField = `(SELECT metadata_field_id FROM metadatafieldregistry WHERE element = 'title' AND qualifier IS NULL)`
	rmidField  = `(SELECT metadata_field_id FROM metadatafieldregistry WHERE element = 'identifier' AND qualifier = 'rmid')`
	byHandle   = `(SELECT resource_id FROM handle WHERE handle = $1 AND resource_type_id = $2)`
)

const grandparentID = `(SELECT parent_comm_id FROM community2community WHERE child_comm_id =
    (SELECT community_id FROM community2collection com2c WHERE com2c.collection_id = c.collection_id))`

var itemQueries = map[NameStorage]string{
	NamesInTable: `SELECT mdv.text_value,
  (SELECT text_value FROM metadatavalue WHERE item_id = mdv.item_id AND metadata_field_id = ` + rmidField + `)
FROM metadatavalue mdv
WHERE mdv.item_id = ` + byHandle + `
  AND mdv.metadata_field_id = ` + titleField,

	NamesInMetadata: `SELECT mdv.text_value,
  (SELECT text_value FROM metadatavalue WHERE resource_id = mdv.resource_id AND resource_type_id = $2
    AND metadata_field_id = ` + rmidField + `)
FROM metadatavalue mdv
WHERE mdv.resource_type_id = $2 AND mdv.resource_id = ` + byHandle + `
  AND mdv.metadata_field_id = ` + titleField,
}

var collectionQueries = map[NameStorage]string{
	NamesInTable: `SELECT c.name,
  (SELECT name FROM community WHERE community_id = ` + grandparentID + `)
FROM collection c
WHERE c.collection_id = ` + byHandle,

	NamesInMetadata: `SELECT
  (SELECT text_value FROM metadatavalue WHERE resource_id = c.collection_id AND resource_type_id = $2
    AND metadata_field_id IN ` + titleField + `),
  (SELECT text_value FROM metadatavalue WHERE resource_type_id = $3 AND resource_id = ` + grandparentID + `
    AND metadata_field_id IN ` + titleField + `)
FROM collection c
WHERE c.collection_id = ` + byHandle,
}

// ItemInfo is what the catalog knows about an item.
type ItemInfo struct {
	Title string
	RMID  string
}

// Resolver looks up handles, caching every answer for the life of the
// resolver. It is not safe for concurrent use.
type Resolver struct {
	db          *sql.DB
	storage     NameStorage
	log         *zap.Logger
	items       map[string]ItemInfo
	collections map[string]string
}

// NewResolver creates a resolver over db. A nil logger disables logging.
func NewResolver(db *sql.DB, storage NameStorage, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		db:          db,
		storage:     storage,
		log:         logger,
		items:       make(map[string]ItemInfo),
		collections: make(map[string]string),
	}
}

// Item returns the title and RMID of the item with the given handle.
func (r *Resolver) Item(ctx context.Context, handle string) (ItemInfo, error) {
	if info, ok := r.items[handle]; ok {
		return info, nil
	}
	var title, rmid sql.NullString
	err := r.queryOne(ctx, resourceItem, handle, []any{&title, &rmid},
		itemQueries[r.storage], handle, resourceItem.typeID)
	if err != nil {
		return ItemInfo{}, err
	}
	info := ItemInfo{Title: title.String, RMID: rmid.String}
	r.items[handle] = info
	return info, nil
}

// Collection returns "<name> {<grandparent community name>}" for the
// collection with the given handle. ERA collections of different years
// usually share their own and their parent's names, so the grandparent
// disambiguates them.
func (r *Resolver) Collection(ctx context.Context, handle string) (string, error) {
	if name, ok := r.collections[handle]; ok {
		return name, nil
	}
	args := []any{handle, resourceCollection.typeID}
	if r.storage == NamesInMetadata {
		args = append(args, resourceCommunity.typeID)
	}
	var name, grandparent sql.NullString
	err := r.queryOne(ctx, resourceCollection, handle, []any{&name, &grandparent},
		collectionQueries[r.storage], args...)
	if err != nil {
		return "", err
	}
	s := fmt.Sprintf("%s {%s}", name.String, grandparent.String)
	r.collections[handle] = s
	return s, nil
}

// Headers implements membership.Enricher.
func (r *Resolver) Headers() []string {
	return []string{"rmid", "item_name", "col_names"}
}

// Fields implements membership.Enricher.
func (r *Resolver) Fields(ctx context.Context, e membership.Entry) ([]string, error) {
	item, err := r.Item(ctx, e.Item)
	if err != nil {
		return nil, err
	}
	cols := e.Collections()
	names := make([]string, 0, len(cols))
	for _, h := range cols {
		n, err := r.Collection(ctx, h)
		if err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return []string{item.RMID, item.Title, strings.Join(names, membership.ValueDelimiter)}, nil
}

func (r *Resolver) queryOne(ctx context.Context, kind resourceKind, handle string, dest []any, query string, args ...any) error {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("lookup %s %s: %w", kind.name, handle, err)
	}
	defer func() { _ = rows.Close() }()

	n := 0
	for rows.Next() {
		n++
		if n > 1 {
			continue
		}
		if err := rows.Scan(dest...); err != nil {
			return fmt.Errorf("lookup %s %s: %w", kind.name, handle, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("lookup %s %s: %w", kind.name, handle, err)
	}
	switch {
	case n == 0:
		return &faults.ReferenceError{Kind: kind.name + " handle", Key: handle}
	case n > 1:
		return fmt.Errorf("%w: %d %s rows for handle %s, expected 1", faults.ErrReference, n, kind.name, handle)
	}
	r.log.Debug("Resolved handle", zap.String("kind", kind.name), zap.String("handle", handle))
	return nil
}
