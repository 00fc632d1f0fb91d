// Package refdata seeds reference data the stores expect to exist, currently
// the wave calendar.
package refdata

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/avionde/odp-backend/internal/pkg/errs"
	"github.com/avionde/odp-backend/internal/platform/logger"
	"github.com/avionde/odp-backend/internal/platform/neo4jdb"
	"github.com/avionde/odp-backend/internal/store"
)

// WaveEntry is one row of the YAML wave calendar.
type WaveEntry struct {
	Year    int    `yaml:"year"`
	Quarter int    `yaml:"quarter"`
	Date    string `yaml:"date"`
}

type waveCalendar struct {
	Waves []WaveEntry `yaml:"waves"`
}

// ParseWaveCalendar decodes and validates a YAML wave calendar. Duplicate
// (year, quarter) rows are rejected so a bad file fails at startup rather than
// half-seeding.
func ParseWaveCalendar(raw []byte) ([]WaveEntry, error) {
	var cal waveCalendar
	if err := yaml.Unmarshal(raw, &cal); err != nil {
		return nil, errs.Validation("wave calendar: %v", err)
	}
	seen := map[string]bool{}
	for _, w := range cal.Waves {
		key := fmt.Sprintf("%d.%d", w.Year, w.Quarter)
		if seen[key] {
			return nil, errs.Validation("wave calendar: duplicate wave %s", key)
		}
		seen[key] = true
	}
	return cal.Waves, nil
}

// SeedWaves loads the calendar at path and upserts every wave. Idempotent:
// waves already present are left untouched.
func SeedWaves(ctx context.Context, client *neo4jdb.Client, waves *store.WaveStore, path, actor string, log *logger.Logger) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read wave calendar %s: %w", path, err)
	}
	entries, err := ParseWaveCalendar(raw)
	if err != nil {
		return err
	}
	err = client.WithWriteTx(ctx, func(tx neo4jdb.Tx) error {
		for _, e := range entries {
			if _, err := waves.Ensure(ctx, tx, e.Year, e.Quarter, e.Date, actor); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Info("seeded wave calendar", "path", path, "waves", len(entries))
	return nil
}
