package leave

import (
	"context"
	"database/sql"
	"time"

	"github.com/vibhu2208/hrms-backend-sub002/internal/approval"

	"gorm.io/gorm"
)

//go:generate mockgen -source=leave_repo.go -destination=mock/leave_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, l *Leave) error
	FindAllByCompany(ctx context.Context, companyID string) ([]Leave, error)
	FindByIDAndCompany(ctx context.Context, companyID, id string) (*Leave, error)
	Update(ctx context.Context, l *Leave) error
	// SubmitFromDraft hanya mengenai baris yang masih DRAFT; submit kedua
	// yang balapan kalah dengan nol baris ter-update.
	SubmitFromDraft(ctx context.Context, l *Leave) (int64, error)
	// SaveDecision hanya mengenai baris yang masih PENDING di expectedLevel.
	// Mengembalikan jumlah baris yang ter-update.
	SaveDecision(ctx context.Context, l *Leave, expectedLevel int) (int64, error)
	FindEscalatable(ctx context.Context, companyID string, now time.Time, limit int) ([]Leave, error)
	Delete(ctx context.Context, companyID, id string) error
	EmployeeBelongsToCompany(ctx context.Context, companyID, employeeID string) (bool, error)
	HasOverlappingPeriod(ctx context.Context, companyID, employeeID string, startDate, endDate time.Time, excludeID *string) (bool, error)
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

func (r *repository) Create(ctx context.Context, l *Leave) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *repository) FindAllByCompany(ctx context.Context, companyID string) ([]Leave, error) {
	var leaves []Leave
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("start_date DESC").
		Find(&leaves).Error
	return leaves, err
}

func (r *repository) FindByIDAndCompany(ctx context.Context, companyID, id string) (*Leave, error) {
	var l Leave
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		First(&l, "id = ?", id).Error
	return &l, err
}

func (r *repository) Update(ctx context.Context, l *Leave) error {
	return r.db.WithContext(ctx).Save(l).Error
}

func (r *repository) SubmitFromDraft(ctx context.Context, l *Leave) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&Leave{}).
		Where("id = ?", l.ID).
		Where("company_id = ?", l.CompanyID).
		Where("status = ?", approval.StatusDraft).
		Updates(map[string]any{
			"status":         l.Status,
			"approval":       l.Approval,
			"current_level":  l.CurrentLevel,
			"sla_deadline":   l.SLADeadline,
			"level_deadline": l.LevelDeadline,
			"is_escalated":   l.IsEscalated,
			"updated_at":     time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *repository) SaveDecision(ctx context.Context, l *Leave, expectedLevel int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&Leave{}).
		Where("id = ?", l.ID).
		Where("company_id = ?", l.CompanyID).
		Where("status = ?", approval.StatusPending).
		Where("current_level = ?", expectedLevel).
		Updates(map[string]any{
			"status":         l.Status,
			"approval":       l.Approval,
			"current_level":  l.CurrentLevel,
			"sla_deadline":   l.SLADeadline,
			"level_deadline": l.LevelDeadline,
			"is_escalated":   l.IsEscalated,
			"finalized_at":   l.FinalizedAt,
			"updated_at":     time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *repository) FindEscalatable(ctx context.Context, companyID string, now time.Time, limit int) ([]Leave, error) {
	db := r.db.WithContext(ctx).
		Where("status = ?", approval.StatusPending).
		Where("is_escalated = ?", false).
		Where("level_deadline IS NOT NULL AND level_deadline <= ?", now)
	if companyID != "" {
		db = db.Where("company_id = ?", companyID)
	}
	var leaves []Leave
	err := db.Order("level_deadline ASC").Limit(limit).Find(&leaves).Error
	return leaves, err
}

func (r *repository) Delete(ctx context.Context, companyID, id string) error {
	return r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Delete(&Leave{}, "id = ?", id).Error
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

func (r *repository) HasOverlappingPeriod(ctx context.Context, companyID, employeeID string, startDate, endDate time.Time, excludeID *string) (bool, error) {
	db := r.db.WithContext(ctx).
		Model(&Leave{}).
		Where("company_id = ?", companyID).
		Where("employee_id = ?", employeeID).
		Where("status NOT IN ?", []string{approval.StatusCanceled, approval.StatusRejected}).
		Where("NOT (end_date < ? OR start_date > ?)", startDate, endDate)

	if excludeID != nil && *excludeID != "" {
		db = db.Where("id <> ?", *excludeID)
	}

	var count int64
	err := db.Count(&count).Error
	return count > 0, err
}
