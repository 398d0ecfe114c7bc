package xsg

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// EpochGroup is the records of one epoch in their original order.
type EpochGroup struct {
	Epoch   int
	Records []*Record
}

// GroupByEpoch partitions records by epoch, ordered by epoch.
func GroupByEpoch(records []*Record) []EpochGroup {
	idx := make(map[int]int)
	var groups []EpochGroup
	for _, r := range records {
		i, ok := idx[r.Epoch]
		if !ok {
			i = len(groups)
			idx[r.Epoch] = i
			groups = append(groups, EpochGroup{Epoch: r.Epoch})
		}
		groups[i].Records = append(groups[i].Records, r)
	}
	slices.SortFunc(groups, func(a, b EpochGroup) int { return a.Epoch - b.Epoch })
	return groups
}

// MergeByEpoch merges the records of each epoch. Epochs are merged
// concurrently, at most workers at a time (unbounded if workers < 1); each
// epoch's records are folded in their original order.
func MergeByEpoch(ctx context.Context, records []*Record, workers int) (map[int]*MergedRecord, error) {
	groups := GroupByEpoch(records)
	out := make(map[int]*MergedRecord, len(groups))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for _, grp := range groups {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			m, err := MergeAll(grp.Records)
			if err != nil {
				return fmt.Errorf("epoch %d: %w", grp.Epoch, err)
			}
			mu.Lock()
			out[grp.Epoch] = m
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// EpochSummary describes the acquisitions of one epoch.
type EpochSummary struct {
	Epoch              int
	Label              string
	Count              int
	AcquisitionNumbers []string
	First              time.Time
	Last               time.Time
}

// Summarize summarizes metadata per epoch, ordered by epoch. When labels
// is non-empty only labelled epochs are reported; otherwise every epoch
// is. Acquisition numbers are sorted numerically.
func Summarize(metas []Metadata, labels map[int]string) []EpochSummary {
	byEpoch := make(map[int]*EpochSummary)
	for _, md := range metas {
		label, labelled := labels[md.Epoch]
		if len(labels) > 0 && !labelled {
			continue
		}
		s, ok := byEpoch[md.Epoch]
		if !ok {
			s = &EpochSummary{Epoch: md.Epoch, Label: label, First: md.Timestamp, Last: md.Timestamp}
			byEpoch[md.Epoch] = s
		}
		s.Count++
		s.AcquisitionNumbers = append(s.AcquisitionNumbers, md.AcquisitionNumber)
		if md.Timestamp.Before(s.First) {
			s.First = md.Timestamp
		}
		if md.Timestamp.After(s.Last) {
			s.Last = md.Timestamp
		}
	}

	out := make([]EpochSummary, 0, len(byEpoch))
	for _, s := range byEpoch {
		sortNatural(s.AcquisitionNumbers)
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b EpochSummary) int { return a.Epoch - b.Epoch })
	return out
}

// Metadatas returns the metadata of each record.
func Metadatas(records []*Record) []Metadata {
	out := make([]Metadata, len(records))
	for i, r := range records {
		out[i] = r.Metadata
	}
	return out
}
