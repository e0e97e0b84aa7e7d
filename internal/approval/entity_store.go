package approval

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	approvalerrors "github.com/vibhu2208/hrms-backend-sub002/internal/approval/errors"
)

// ErrStaleEntity dikembalikan store kalau conditional write tidak mengenai
// baris apapun: status atau current level sudah berubah di bawah kita.
var ErrStaleEntity = approvalerrors.ErrInvalidLevelTransition

// Approvable diimplementasikan oleh entity bisnis yang meng-embed Instance.
type Approvable interface {
	ApprovalEntityID() uuid.UUID
	ApprovalCompanyID() uuid.UUID
	ApprovalEntityType() EntityType
	RequesterID() uuid.UUID
	ApprovalState() *Instance
	EntityStatus() string
	SetEntityStatus(status string)
}

// EntityStore adalah kolaborator per entity type. SaveDecision wajib berupa
// conditional write: hanya mengenai baris yang masih PENDING di expectedLevel.
//
//go:generate mockgen -source=entity_store.go -destination=mock/entity_store_mock.go -package=mock
type EntityStore interface {
	EntityType() EntityType
	FindForApproval(ctx context.Context, companyID, id string) (Approvable, error)
	SaveDecision(ctx context.Context, e Approvable, expectedLevel int) error
	// FindEscalatable mengembalikan entity PENDING yang belum escalated dan
	// deadline level aktifnya sudah lewat. companyID kosong berarti semua tenant.
	FindEscalatable(ctx context.Context, companyID string, now time.Time, limit int) ([]Approvable, error)
}

// Finalizer dipanggil tepat sekali saat entity mencapai status terminal.
type Finalizer interface {
	OnApproved(ctx context.Context, e Approvable) error
	OnRejected(ctx context.Context, e Approvable) error
}

// StoreRegistry memegang store dan finalizer per entity type. Diisi saat
// wiring aplikasi, setelah itu read-only.
type StoreRegistry struct {
	mu         sync.RWMutex
	stores     map[EntityType]EntityStore
	finalizers map[EntityType]Finalizer
}

func NewStoreRegistry() *StoreRegistry {
	return &StoreRegistry{
		stores:     make(map[EntityType]EntityStore),
		finalizers: make(map[EntityType]Finalizer),
	}
}

func (r *StoreRegistry) RegisterStore(store EntityStore) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[store.EntityType()] = store
}

func (r *StoreRegistry) RegisterFinalizer(entityType EntityType, f Finalizer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finalizers[entityType] = f
}

func (r *StoreRegistry) Store(entityType EntityType) (EntityStore, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	store, ok := r.stores[entityType]
	if !ok {
		return nil, approvalerrors.ErrUnknownEntityType
	}
	return store, nil
}

func (r *StoreRegistry) Finalizer(entityType EntityType) Finalizer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.finalizers[entityType]
}

func (r *StoreRegistry) Stores() []EntityStore {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]EntityStore, 0, len(r.stores))
	for _, s := range r.stores {
		out = append(out, s)
	}
	return out
}
