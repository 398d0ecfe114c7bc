// Package catalog indexes the header metadata of XSG files in a SQLite
// database, so that experiments can be browsed by epoch without parsing
// every trace.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/ginty-lab/ephus/internal/monitoring"
	"github.com/ginty-lab/ephus/internal/timeutil"
	"github.com/ginty-lab/ephus/internal/xsg"
)

// Catalog is a metadata index backed by SQLite.
type Catalog struct {
	db     *sql.DB
	parser *xsg.Parser
	clock  timeutil.Clock
}

// Open opens or creates the catalog at path and migrates its schema.
// Files are read through parser; a nil parser reads the OS filesystem.
func Open(path string, parser *xsg.Parser) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}
	if err := migrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if parser == nil {
		parser = xsg.NewParser(nil, nil)
	}
	return &Catalog{db: db, parser: parser, clock: timeutil.RealClock{}}, nil
}

// SetClock replaces the clock that stamps scans.
func (c *Catalog) SetClock(clk timeutil.Clock) {
	c.clock = clk
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Acquisition is one catalogued file.
type Acquisition struct {
	Path              string
	ExperimentNumber  string
	AcquisitionNumber string
	Epoch             int
	SampleRate        int
	Timestamp         time.Time
	TimestampRaw      string
	ScanID            string
}

// Metadata returns the header metadata of the acquisition.
func (a Acquisition) Metadata() xsg.Metadata {
	return xsg.Metadata{
		SampleRate:        a.SampleRate,
		Epoch:             a.Epoch,
		AcquisitionNumber: a.AcquisitionNumber,
		ExperimentNumber:  a.ExperimentNumber,
		Timestamp:         a.Timestamp,
		TimestampRaw:      a.TimestampRaw,
	}
}

// ScanResult reports one Scan.
type ScanResult struct {
	ID      string
	Root    string
	Files   int
	Indexed int
	// Skipped lists files whose header could not be read.
	Skipped []string
}

// Scan reads the header of every XSG file under root, at most workers at
// a time, and upserts their metadata. Unreadable files are logged and
// skipped.
func (c *Catalog) Scan(ctx context.Context, root string, workers int) (*ScanResult, error) {
	started := c.clock.Now()
	paths, err := c.parser.FindFiles(root)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", root, err)
	}

	res := &ScanResult{ID: uuid.NewString(), Root: root, Files: len(paths)}
	metas := make([]*xsg.Metadata, len(paths))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			md, err := c.parser.ParseMetadata(path)
			if err != nil {
				monitoring.Logf("catalog: skipping %v", err)
				mu.Lock()
				res.Skipped = append(res.Skipped, path)
				mu.Unlock()
				return nil
			}
			metas[i] = &md
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	slices.Sort(res.Skipped)

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO scans (scan_id, root, started_unix, files, skipped) VALUES (?, ?, ?, ?, ?)`,
		res.ID, root, started.Unix(), len(paths), len(res.Skipped),
	); err != nil {
		return nil, fmt.Errorf("failed to record scan: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO acquisitions (
			path, experiment_number, acquisition_number, epoch,
			sample_rate, timestamp_unix, timestamp_raw, scan_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			experiment_number  = excluded.experiment_number,
			acquisition_number = excluded.acquisition_number,
			epoch              = excluded.epoch,
			sample_rate        = excluded.sample_rate,
			timestamp_unix     = excluded.timestamp_unix,
			timestamp_raw      = excluded.timestamp_raw,
			scan_id            = excluded.scan_id`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	for i, md := range metas {
		if md == nil {
			continue
		}
		if _, err := stmt.ExecContext(ctx,
			paths[i], md.ExperimentNumber, md.AcquisitionNumber, md.Epoch,
			md.SampleRate, md.Timestamp.Unix(), md.TimestampRaw, res.ID,
		); err != nil {
			return nil, fmt.Errorf("failed to index %s: %w", paths[i], err)
		}
		res.Indexed++
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	monitoring.Logf("catalog: scan %s indexed %d of %d files under %s in %v",
		res.ID, res.Indexed, res.Files, root, c.clock.Since(started))
	return res, nil
}

const selectAcquisitions = `
	SELECT path, experiment_number, acquisition_number, epoch,
	       sample_rate, timestamp_unix, timestamp_raw, scan_id
	FROM acquisitions`

// Acquisitions returns the acquisitions of one epoch in acquisition order.
func (c *Catalog) Acquisitions(ctx context.Context, epoch int) ([]Acquisition, error) {
	return c.query(ctx, selectAcquisitions+` WHERE epoch = ? ORDER BY timestamp_unix, path`, epoch)
}

// All returns every catalogued acquisition ordered by epoch and time.
func (c *Catalog) All(ctx context.Context) ([]Acquisition, error) {
	return c.query(ctx, selectAcquisitions+` ORDER BY epoch, timestamp_unix, path`)
}

func (c *Catalog) query(ctx context.Context, q string, args ...any) ([]Acquisition, error) {
	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Acquisition
	for rows.Next() {
		var (
			a  Acquisition
			ts int64
		)
		if err := rows.Scan(&a.Path, &a.ExperimentNumber, &a.AcquisitionNumber, &a.Epoch,
			&a.SampleRate, &ts, &a.TimestampRaw, &a.ScanID); err != nil {
			return nil, err
		}
		a.Timestamp = time.Unix(ts, 0).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

// EpochCount is the number of catalogued acquisitions of one epoch.
type EpochCount struct {
	Epoch int
	Count int
}

// EpochCounts returns the number of acquisitions per epoch.
func (c *Catalog) EpochCounts(ctx context.Context) ([]EpochCount, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT epoch, COUNT(*) FROM acquisitions GROUP BY epoch ORDER BY epoch`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EpochCount
	for rows.Next() {
		var ec EpochCount
		if err := rows.Scan(&ec.Epoch, &ec.Count); err != nil {
			return nil, err
		}
		out = append(out, ec)
	}
	return out, rows.Err()
}

// Scan is one recorded run of Catalog.Scan.
type Scan struct {
	ID      string
	Root    string
	Started time.Time
	Files   int
	Skipped int
}

// Scans returns the recorded scans, oldest first.
func (c *Catalog) Scans(ctx context.Context) ([]Scan, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT scan_id, root, started_unix, files, skipped FROM scans ORDER BY started_unix, rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Scan
	for rows.Next() {
		var (
			s  Scan
			ts int64
		)
		if err := rows.Scan(&s.ID, &s.Root, &ts, &s.Files, &s.Skipped); err != nil {
			return nil, err
		}
		s.Started = time.Unix(ts, 0).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}
