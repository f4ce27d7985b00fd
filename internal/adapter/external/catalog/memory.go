package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/seu-repo/handover-engine/internal/domain"
)

// Memory is an in-process catalog for local runs and tests.
type Memory struct {
	mu        sync.RWMutex
	vehicles  map[string]domain.Vehicle
	customers map[string]domain.Customer
}

func NewMemory() *Memory {
	return &Memory{
		vehicles:  make(map[string]domain.Vehicle),
		customers: make(map[string]domain.Customer),
	}
}

func (m *Memory) PutVehicle(v domain.Vehicle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vehicles[v.ID] = v
}

func (m *Memory) PutCustomer(c domain.Customer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers[c.ID] = c
}

func (m *Memory) GetVehicle(ctx context.Context, id string) (*domain.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vehicles[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (m *Memory) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.customers[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// Seed is the file format read by LoadSeed.
type Seed struct {
	Vehicles  []domain.Vehicle  `json:"vehicles"`
	Customers []domain.Customer `json:"customers"`
}

// LoadSeed builds a Memory catalog from a JSON seed file. Every vehicle
// needs an ID and a rate plan that can be billed.
func LoadSeed(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog seed: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("decode catalog seed %s: %w", path, err)
	}

	m := NewMemory()
	for _, v := range seed.Vehicles {
		if v.ID == "" {
			return nil, fmt.Errorf("catalog seed %s: vehicle without id", path)
		}
		if err := v.RatePlan.Validate(); err != nil {
			return nil, fmt.Errorf("catalog seed %s: vehicle %s: %w", path, v.ID, err)
		}
		m.PutVehicle(v)
	}
	for _, c := range seed.Customers {
		if c.ID == "" {
			return nil, fmt.Errorf("catalog seed %s: customer without id", path)
		}
		m.PutCustomer(c)
	}
	return m, nil
}
