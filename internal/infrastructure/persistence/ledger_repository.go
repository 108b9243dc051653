package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInwardLotRepository implements InwardLotRepository using GORM
type GormInwardLotRepository struct {
	db *gorm.DB
}

// NewGormInwardLotRepository creates a new GormInwardLotRepository
func NewGormInwardLotRepository(db *gorm.DB) *GormInwardLotRepository {
	return &GormInwardLotRepository{db: db}
}

// FindByID finds an inward lot by its ID
func (r *GormInwardLotRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.InwardLot, error) {
	var model models.InwardLotModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists inward lots, newest first, with the total before paging
func (r *GormInwardLotRepository) FindAll(ctx context.Context, filter ledger.InwardLotFilter) ([]*ledger.InwardLot, int64, error) {
	scoped := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&models.InwardLotModel{})
		if filter.IssueMode != "" {
			query = query.Where("issue_mode = ?", string(filter.IssueMode))
		}
		return applySearch(query, filter.Search)
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.InwardLotModel
	if err := applyPage(scoped(), filter.Filter).
		Order("created_at DESC").Order("code DESC").
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	lots := make([]*ledger.InwardLot, len(rows))
	for i := range rows {
		lots[i] = rows[i].ToDomain()
	}
	return lots, total, nil
}

// Save creates or updates an inward lot
func (r *GormInwardLotRepository) Save(ctx context.Context, lot *ledger.InwardLot) error {
	return r.db.WithContext(ctx).Save(models.InwardLotModelFromDomain(lot)).Error
}

// GormReservationRepository implements ReservationRepository using GORM.
// Release orders, delivery orders and outward movements share one table.
type GormReservationRepository struct {
	db *gorm.DB
}

// NewGormReservationRepository creates a new GormReservationRepository
func NewGormReservationRepository(db *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: db}
}

// FindByID finds a reservation by its ID
func (r *GormReservationRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Reservation, error) {
	var model models.ReservationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByParent returns the children of one parent, newest first
func (r *GormReservationRepository) FindByParent(ctx context.Context, parent ledger.ParentRef) ([]*ledger.Reservation, error) {
	var rows []models.ReservationModel
	if err := r.db.WithContext(ctx).
		Where("parent_kind = ? AND parent_id = ?", string(parent.Kind), parent.ID).
		Order("created_at DESC").Order("code DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toReservations(rows), nil
}

// FindByParentIDs returns the children of many parents in one query
func (r *GormReservationRepository) FindByParentIDs(ctx context.Context, parentIDs []uuid.UUID) ([]*ledger.Reservation, error) {
	if len(parentIDs) == 0 {
		return []*ledger.Reservation{}, nil
	}
	var rows []models.ReservationModel
	if err := r.db.WithContext(ctx).
		Where("parent_id IN ?", parentIDs).
		Order("created_at DESC").Order("code DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toReservations(rows), nil
}

// FindAll lists reservations, newest first, with the total before paging
func (r *GormReservationRepository) FindAll(ctx context.Context, filter ledger.ReservationFilter) ([]*ledger.Reservation, int64, error) {
	scoped := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&models.ReservationModel{})
		if filter.Kind != "" {
			query = query.Where("kind = ?", string(filter.Kind))
		}
		if filter.Status != "" {
			query = query.Where("status = ?", string(filter.Status))
		}
		return applySearch(query, filter.Search)
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.ReservationModel
	if err := applyPage(scoped(), filter.Filter).
		Order("created_at DESC").Order("code DESC").
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toReservations(rows), total, nil
}

// RejectedGrandchildParents reports which parents have a rejected record two levels down
func (r *GormReservationRepository) RejectedGrandchildParents(ctx context.Context, parentIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool)
	if len(parentIDs) == 0 {
		return out, nil
	}
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Table("ledger_reservations AS c").
		Joins("JOIN ledger_reservations AS g ON g.parent_id = c.id").
		Where("c.parent_id IN ? AND g.status = ?", parentIDs, string(ledger.StatusRejected)).
		Distinct().
		Pluck("c.parent_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// Create inserts a new reservation
func (r *GormReservationRepository) Create(ctx context.Context, res *ledger.Reservation) error {
	return r.db.WithContext(ctx).Create(models.ReservationModelFromDomain(res)).Error
}

// Update saves the mutable fields of a reservation with optimistic locking.
// Kind, code and parent link are never rewritten.
func (r *GormReservationRepository) Update(ctx context.Context, res *ledger.Reservation) error {
	model := models.ReservationModelFromDomain(res)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("version = ?", res.Version-1).
		Select(
			"reserved_primary", "reserved_secondary",
			"status", "status_remark", "status_updated_by", "status_updated_at",
			"attachment_refs", "stacks",
			"balance_before_primary", "balance_before_secondary",
			"revision", "version", "updated_at",
		).
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict.WithDetail("code", res.Code)
	}
	return nil
}

func toReservations(rows []models.ReservationModel) []*ledger.Reservation {
	out := make([]*ledger.Reservation, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

// GormAuditRepository implements AuditRepository using GORM
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// Append inserts audit entries; existing rows are never changed
func (r *GormAuditRepository) Append(ctx context.Context, entries ...ledger.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]models.AuditEntryModel, len(entries))
	for i, e := range entries {
		rows[i] = models.AuditEntryModelFromDomain(e)
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// FindByReservation returns the history of a reservation, oldest first
func (r *GormAuditRepository) FindByReservation(ctx context.Context, reservationID uuid.UUID) ([]ledger.AuditEntry, error) {
	var rows []models.AuditEntryModel
	if err := r.db.WithContext(ctx).
		Where("reservation_id = ?", reservationID).
		Order("occurred_at ASC").Order("revision ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ledger.AuditEntry, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

func applySearch(query *gorm.DB, search string) *gorm.DB {
	search = strings.TrimSpace(search)
	if search == "" {
		return query
	}
	pattern := "%" + strings.ToLower(search) + "%"
	return query.Where("LOWER(code) LIKE ? OR LOWER(natural_key) LIKE ?", pattern, pattern)
}

func applyPage(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	return query
}

// Ensure the repositories implement their domain interfaces
var (
	_ ledger.InwardLotRepository   = (*GormInwardLotRepository)(nil)
	_ ledger.ReservationRepository = (*GormReservationRepository)(nil)
	_ ledger.AuditRepository       = (*GormAuditRepository)(nil)
)
