package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Borislavv/go-ash-query/model"
)

var errVehicleNotFound = errors.New("vehicle not found")

// inventory simulates the hosted vehicle table: every call pays a fixed latency.
type inventory struct {
	mu       sync.RWMutex
	vehicles []model.Record
	latency  time.Duration
}

func newInventory(latency time.Duration, seed ...model.Record) *inventory {
	inv := &inventory{latency: latency}
	for _, v := range seed {
		inv.vehicles = append(inv.vehicles, model.NewRecord(v))
	}
	return inv
}

func seedVehicles() []model.Record {
	return []model.Record{
		{"make": "volvo", "model": "xc60", "year": 2021, "status": "active"},
		{"make": "volvo", "model": "v90", "year": 2019, "status": "sold"},
		{"make": "toyota", "model": "corolla", "year": 2020, "status": "active"},
		{"make": "bmw", "model": "x3", "year": 2018, "status": "pending"},
	}
}

// List returns vehicles whose fields equal every non-empty filter value.
func (i *inventory) List(ctx context.Context, filter map[string]string) ([]model.Record, error) {
	if err := i.wait(ctx); err != nil {
		return nil, err
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	out := make([]model.Record, 0, len(i.vehicles))
	for _, v := range i.vehicles {
		if matches(v, filter) {
			out = append(out, v.Clone())
		}
	}
	return out, nil
}

func (i *inventory) Create(ctx context.Context, v model.Record) (model.Record, error) {
	if err := i.wait(ctx); err != nil {
		return nil, err
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	created := model.NewRecord(v)
	i.vehicles = append([]model.Record{created}, i.vehicles...)
	return created.Clone(), nil
}

func (i *inventory) Update(ctx context.Context, id string, patch model.Record) (model.Record, error) {
	if err := i.wait(ctx); err != nil {
		return nil, err
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	for idx, v := range i.vehicles {
		if v.ID() == id {
			i.vehicles[idx] = v.Merge(patch)
			return i.vehicles[idx].Clone(), nil
		}
	}
	return nil, fmt.Errorf("update %s: %w", id, errVehicleNotFound)
}

func (i *inventory) Delete(ctx context.Context, id string) error {
	if err := i.wait(ctx); err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	for idx, v := range i.vehicles {
		if v.ID() == id {
			i.vehicles = append(i.vehicles[:idx], i.vehicles[idx+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete %s: %w", id, errVehicleNotFound)
}

func (i *inventory) wait(ctx context.Context) error {
	if i.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(i.latency)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func matches(v model.Record, filter map[string]string) bool {
	for field, want := range filter {
		if want == "" {
			continue
		}
		if fmt.Sprint(v[field]) != want {
			return false
		}
	}
	return true
}
