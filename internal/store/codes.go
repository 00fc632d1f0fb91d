package store

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/avionde/odp-backend/internal/pkg/errs"
	"github.com/avionde/odp-backend/internal/platform/neo4jdb"
)

var draftingGroupPattern = regexp.MustCompile(`^[A-Z0-9]+$`)

// nextCode allocates the next sequence code for (type tag, drafting group),
// e.g. OR-NMB2B-0042. Two concurrent creates in the same group can race to
// the same number; the surrounding transaction serializes the allocation.
func (e *VersionedStore) nextCode(ctx context.Context, tx neo4jdb.Tx, group string) (string, error) {
	group = strings.ToUpper(strings.TrimSpace(group))
	if !draftingGroupPattern.MatchString(group) {
		return "", errs.Validation("invalid drafting group %q", group)
	}
	prefix := fmt.Sprintf("%s-%s-", e.codeTag, group)

	query := fmt.Sprintf(`
MATCH (i:%s) WHERE i.code STARTS WITH $prefix
RETURN i.code AS code
ORDER BY i.code DESC
LIMIT 1
`, e.itemLabel)
	rec, err := neo4jdb.Single(ctx, tx, "store.nextCode "+e.itemLabel, query, map[string]any{"prefix": prefix})
	if err != nil {
		return "", errs.StoreFault(err, "allocate code for "+e.itemLabel)
	}
	last := ""
	if rec != nil {
		last = recordString(rec, "code")
	}
	return fmt.Sprintf("%s%04d", prefix, nextInSequence(last)), nil
}

// nextInSequence extracts the trailing numeric suffix of the lexicographically
// greatest existing code and increments it. No match starts the sequence at 1.
func nextInSequence(lastCode string) int {
	idx := strings.LastIndex(lastCode, "-")
	if idx < 0 || idx == len(lastCode)-1 {
		return 1
	}
	n, err := strconv.Atoi(lastCode[idx+1:])
	if err != nil || n < 0 {
		return 1
	}
	return n + 1
}
