package webhooks

import (
	"context"
	"sync"
)

// MemoryDeliveryStore keeps outstanding deliveries in process memory. It
// satisfies the store contract for sandbox and test assemblies; durability
// across restarts requires a relational store.
type MemoryDeliveryStore struct {
	mu         sync.Mutex
	deliveries map[string]Delivery
}

func NewMemoryDeliveryStore() *MemoryDeliveryStore {
	return &MemoryDeliveryStore{deliveries: map[string]Delivery{}}
}

func (s *MemoryDeliveryStore) Save(_ context.Context, delivery Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries[delivery.ID] = delivery
	return nil
}

func (s *MemoryDeliveryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.deliveries, id)
	return nil
}

func (s *MemoryDeliveryStore) FindOutstanding(context.Context) ([]Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Delivery, 0, len(s.deliveries))
	for _, delivery := range s.deliveries {
		if delivery.Status == DeliveryStatusPending || delivery.Status == DeliveryStatusRetrying {
			out = append(out, delivery)
		}
	}
	return out, nil
}

var _ DeliveryStore = (*MemoryDeliveryStore)(nil)
