package storage

import (
	"context"
	"errors"

	"rangeTrader/internal/model"
)

// Journal defines a sink for finished trading cycles.
type Journal interface {
	PutCycle(ctx context.Context, record model.CycleRecord) error
}

// MultiJournal fans a record out to every sink. All sinks are attempted even
// when an earlier one fails.
type MultiJournal []Journal

func (m MultiJournal) PutCycle(ctx context.Context, record model.CycleRecord) error {
	var errs []error
	for _, j := range m {
		if j == nil {
			continue
		}
		if err := j.PutCycle(ctx, record); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
