// Package store implements the versioned-entity stores and the temporal
// cascade filtering over the Neo4j graph.
//
// Every operation runs inside a transaction handle (neo4jdb.Tx) opened and
// committed by the caller; the stores keep no mutable state of their own.
// Item/version writes, edge writes and milestone copies within one call are
// only atomic through that surrounding transaction.
package store

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/avionde/odp-backend/internal/platform/neo4jdb"
)

// Relationship edge types. Version-scoped except LATEST_VERSION and
// VERSION_OF, which tie versions to their item.
const (
	edgeVersionOf  = "VERSION_OF"
	edgeLatest     = "LATEST_VERSION"
	edgeRefines    = "REFINES"
	edgeImpacts    = "IMPACTS"
	edgeSatisfies  = "SATISFIES"
	edgeSupersedes = "SUPERSEDES"
	edgeDependsOn  = "DEPENDS_ON"
	edgeReferences = "REFERENCES"
	edgeBelongsTo  = "BELONGS_TO"
	edgeTargets    = "TARGETS"
	edgeHasItems   = "HAS_ITEMS"
	edgeStartsFrom = "STARTS_FROM"
	edgeExposes    = "EXPOSES"
)

// ListContext scopes a read: zero BaselineID means "latest versions", zero
// FromWaveID means "no temporal filter". Callers holding an edition id go
// through EditionStore.ResolveContext first.
//
// Zero doubles as the absent sentinel even though Neo4j internal ids start
// at 0: the first node ever created in a database gets id 0 and cannot be
// selected here. The exposure is at most that one node; wave seeding at
// startup (refdata.SeedWaves) claims the earliest ids in a fresh database,
// so it is a calendar wave that lands on id 0, not a baseline.
type ListContext struct {
	BaselineID int64
	FromWaveID int64
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(v any) time.Time {
	s, ok := v.(string)
	if !ok || s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// recordID reads an internal node id column. A missing or null column comes
// back as 0, which is also a valid internal id (Neo4j numbers nodes from 0),
// so callers treating 0 as "absent" conflate it with the first node ever
// created in a database. See the ListContext comment for why that node is
// never a domain item here.
func recordID(rec *neo4j.Record, key string) (int64, error) {
	v, ok := rec.Get(key)
	if !ok {
		return 0, nil
	}
	if v == nil {
		return 0, nil
	}
	return neo4jdb.NormalizeID(v)
}

func recordString(rec *neo4j.Record, key string) string {
	v, _ := rec.Get(key)
	return neo4jdb.StringVal(v)
}

func recordInt(rec *neo4j.Record, key string) int {
	v, _ := rec.Get(key)
	return neo4jdb.IntVal(v)
}

func recordStrings(rec *neo4j.Record, key string) []string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		out = append(out, neo4jdb.StringVal(item))
	}
	return out
}

func propString(props map[string]any, key string) string {
	return neo4jdb.StringVal(props[key])
}
