package faultstore

import (
	"context"
	"time"

	"git.home.luguber.info/inful/faultline/internal/callable"
	"git.home.luguber.info/inful/faultline/internal/fault"
)

// appendTimeout bounds a single journal write.
const appendTimeout = 2 * time.Second

// Journal is the fault.captured subscriber writing to a Store.
type Journal struct {
	store Store
}

// NewJournal returns a subscriber for store.
func NewJournal(store Store) *Journal {
	return &Journal{store: store}
}

// Handle appends c to the store.
func (j *Journal) Handle(c *fault.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
	defer cancel()
	_, err := j.store.Append(ctx, c.Record())
	return err
}

// Handler returns the journal as a bus handler.
func (j *Journal) Handler() callable.Callable[*fault.Context, error] {
	return callable.Method(j, "Handle", j.Handle)
}
