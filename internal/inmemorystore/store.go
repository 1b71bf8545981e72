// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of resultstore.Store.
//
// It keys every map by the stage's canonical address and uses sync.Map: the
// key space is fixed when the run starts, and each key is written by one
// worker while others read different keys.
package inmemorystore

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/specialistvlad/stagegrid/internal/nodeid"
	"github.com/specialistvlad/stagegrid/internal/resultstore"
	"github.com/zclconf/go-cty/cty"
)

// Store is an in-memory resultstore.Store.
type Store struct {
	states  sync.Map // stage ID -> resultstore.Status
	outputs sync.Map // stage ID -> map[string]cty.Value
	errors  sync.Map // stage ID -> error
}

// New creates a new, empty in-memory result store.
func New() *Store {
	return &Store{}
}

var _ resultstore.Store = (*Store)(nil)

// SetStatus records the status of a stage.
func (s *Store) SetStatus(ctx context.Context, id nodeid.Address, status resultstore.Status) error {
	s.states.Store(id.String(), status)
	return nil
}

// Status returns the status of a stage, or Pending if none was recorded.
func (s *Store) Status(ctx context.Context, id nodeid.Address) (resultstore.Status, error) {
	status, ok := s.states.Load(id.String())
	if !ok {
		return resultstore.Pending, nil
	}
	return status.(resultstore.Status), nil
}

// SetOutputs records the outputs of a stage exactly once. The map is copied.
func (s *Store) SetOutputs(ctx context.Context, id nodeid.Address, outputs map[string]cty.Value) error {
	if _, loaded := s.outputs.LoadOrStore(id.String(), maps.Clone(outputs)); loaded {
		return fmt.Errorf("outputs of stage %q: %w", id, resultstore.ErrAlreadyWritten)
	}
	return nil
}

// Outputs returns the recorded outputs of a stage.
func (s *Store) Outputs(ctx context.Context, id nodeid.Address) (map[string]cty.Value, bool, error) {
	out, ok := s.outputs.Load(id.String())
	if !ok {
		return nil, false, nil
	}
	return out.(map[string]cty.Value), true, nil
}

// SetError records the error of a stage.
func (s *Store) SetError(ctx context.Context, id nodeid.Address, stageErr error) error {
	s.errors.Store(id.String(), stageErr)
	return nil
}

// Error returns the recorded error of a stage.
func (s *Store) Error(ctx context.Context, id nodeid.Address) (error, error) {
	err, ok := s.errors.Load(id.String())
	if !ok {
		return nil, nil
	}
	return err.(error), nil
}
