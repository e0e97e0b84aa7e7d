package leave

import (
	"context"
	"errors"
	"time"

	"github.com/vibhu2208/hrms-backend-sub002/internal/approval"

	"gorm.io/gorm"
)

// Store mengadaptasi repository leave ke kontrak engine approval.
type Store struct {
	repo Repository
}

func NewStore(repo Repository) *Store {
	return &Store{repo: repo}
}

func (s *Store) EntityType() approval.EntityType {
	return approval.EntityTypeLeave
}

func (s *Store) FindForApproval(ctx context.Context, companyID, id string) (approval.Approvable, error) {
	l, err := s.repo.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return l, nil
}

func (s *Store) SaveDecision(ctx context.Context, e approval.Approvable, expectedLevel int) error {
	l, ok := e.(*Leave)
	if !ok {
		return approval.ErrStaleEntity
	}
	l.syncApprovalColumns()
	if l.Status == approval.StatusApproved || l.Status == approval.StatusRejected {
		now := time.Now().UTC()
		l.FinalizedAt = &now
	}

	affected, err := s.repo.SaveDecision(ctx, l, expectedLevel)
	if err != nil {
		return err
	}
	if affected == 0 {
		return approval.ErrStaleEntity
	}
	return nil
}

func (s *Store) FindEscalatable(ctx context.Context, companyID string, now time.Time, limit int) ([]approval.Approvable, error) {
	leaves, err := s.repo.FindEscalatable(ctx, companyID, now, limit)
	if err != nil {
		return nil, err
	}
	out := make([]approval.Approvable, len(leaves))
	for i := range leaves {
		out[i] = &leaves[i]
	}
	return out, nil
}
