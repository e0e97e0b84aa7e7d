package expense

import (
	"context"
	"database/sql"
	"time"

	"github.com/vibhu2208/hrms-backend-sub002/internal/approval"

	"gorm.io/gorm"
)

//go:generate mockgen -source=expense_repo.go -destination=mock/expense_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, e *Expense) error
	FindAllByCompany(ctx context.Context, companyID string) ([]Expense, error)
	FindByIDAndCompany(ctx context.Context, companyID, id string) (*Expense, error)
	Update(ctx context.Context, e *Expense) error
	// SubmitFromDraft hanya mengenai baris yang masih DRAFT; submit kedua
	// yang balapan kalah dengan nol baris ter-update.
	SubmitFromDraft(ctx context.Context, e *Expense) (int64, error)
	// SaveDecision hanya mengenai baris yang masih PENDING di expectedLevel.
	SaveDecision(ctx context.Context, e *Expense, expectedLevel int) (int64, error)
	FindEscalatable(ctx context.Context, companyID string, now time.Time, limit int) ([]Expense, error)
	Delete(ctx context.Context, companyID, id string) error
	EmployeeBelongsToCompany(ctx context.Context, companyID, employeeID string) (bool, error)
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, tx: tx}
}

func (r *repository) Create(ctx context.Context, e *Expense) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *repository) FindAllByCompany(ctx context.Context, companyID string) ([]Expense, error) {
	var expenses []Expense
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("expense_date DESC").
		Find(&expenses).Error
	return expenses, err
}

func (r *repository) FindByIDAndCompany(ctx context.Context, companyID, id string) (*Expense, error) {
	var e Expense
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		First(&e, "id = ?", id).Error
	return &e, err
}

func (r *repository) Update(ctx context.Context, e *Expense) error {
	return r.db.WithContext(ctx).Save(e).Error
}

func (r *repository) SubmitFromDraft(ctx context.Context, e *Expense) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&Expense{}).
		Where("id = ?", e.ID).
		Where("company_id = ?", e.CompanyID).
		Where("status = ?", approval.StatusDraft).
		Updates(map[string]any{
			"status":         e.Status,
			"approval":       e.Approval,
			"current_level":  e.CurrentLevel,
			"sla_deadline":   e.SLADeadline,
			"level_deadline": e.LevelDeadline,
			"is_escalated":   e.IsEscalated,
			"updated_at":     time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *repository) SaveDecision(ctx context.Context, e *Expense, expectedLevel int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&Expense{}).
		Where("id = ?", e.ID).
		Where("company_id = ?", e.CompanyID).
		Where("status = ?", approval.StatusPending).
		Where("current_level = ?", expectedLevel).
		Updates(map[string]any{
			"status":         e.Status,
			"approval":       e.Approval,
			"current_level":  e.CurrentLevel,
			"sla_deadline":   e.SLADeadline,
			"level_deadline": e.LevelDeadline,
			"is_escalated":   e.IsEscalated,
			"finalized_at":   e.FinalizedAt,
			"updated_at":     time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *repository) FindEscalatable(ctx context.Context, companyID string, now time.Time, limit int) ([]Expense, error) {
	db := r.db.WithContext(ctx).
		Where("status = ?", approval.StatusPending).
		Where("is_escalated = ?", false).
		Where("level_deadline IS NOT NULL AND level_deadline <= ?", now)
	if companyID != "" {
		db = db.Where("company_id = ?", companyID)
	}
	var expenses []Expense
	err := db.Order("level_deadline ASC").Limit(limit).Find(&expenses).Error
	return expenses, err
}

func (r *repository) Delete(ctx context.Context, companyID, id string) error {
	return r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Delete(&Expense{}, "id = ?", id).Error
}

func (r *repository) EmployeeBelongsToCompany(ctx context.Context, companyID, employeeID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("employees").
		Where("id = ?", employeeID).
		Where("company_id = ?", companyID).
		Where("is_active = ?", true).
		Count(&count).Error
	return count > 0, err
}
