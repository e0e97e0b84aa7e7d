package expense

import (
	"context"
	"errors"
	"time"

	"github.com/vibhu2208/hrms-backend-sub002/internal/approval"

	"gorm.io/gorm"
)

// Store mengadaptasi repository expense ke kontrak engine approval.
type Store struct {
	repo Repository
}

func NewStore(repo Repository) *Store {
	return &Store{repo: repo}
}

func (s *Store) EntityType() approval.EntityType {
	return approval.EntityTypeExpense
}

func (s *Store) FindForApproval(ctx context.Context, companyID, id string) (approval.Approvable, error) {
	e, err := s.repo.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

func (s *Store) SaveDecision(ctx context.Context, a approval.Approvable, expectedLevel int) error {
	e, ok := a.(*Expense)
	if !ok {
		return approval.ErrStaleEntity
	}
	e.syncApprovalColumns()
	if e.Status == approval.StatusApproved || e.Status == approval.StatusRejected {
		now := time.Now().UTC()
		e.FinalizedAt = &now
	}

	affected, err := s.repo.SaveDecision(ctx, e, expectedLevel)
	if err != nil {
		return err
	}
	if affected == 0 {
		return approval.ErrStaleEntity
	}
	return nil
}

func (s *Store) FindEscalatable(ctx context.Context, companyID string, now time.Time, limit int) ([]approval.Approvable, error) {
	expenses, err := s.repo.FindEscalatable(ctx, companyID, now, limit)
	if err != nil {
		return nil, err
	}
	out := make([]approval.Approvable, len(expenses))
	for i := range expenses {
		out[i] = &expenses[i]
	}
	return out, nil
}
