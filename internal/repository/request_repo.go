package repository

import (
	"context"
	"errors"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrStaleStatus is returned when a compare-and-set status update matched no
// row: the request moved to another status since it was read.
var ErrStaleStatus = errors.New("request status changed since read")

// RequestFilter narrows request listings
type RequestFilter struct {
	Status      string
	Type        string
	RequesterID *uuid.UUID
	Page        int
	Limit       int
}

type RequestRepository interface {
	Create(ctx context.Context, req *model.Request) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Request, error)
	FindByIDFull(ctx context.Context, id uuid.UUID) (*model.Request, error)
	List(ctx context.Context, filter RequestFilter) ([]model.Request, int64, error)
	Save(ctx context.Context, req *model.Request) error
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	AdvanceStatus(ctx context.Context, id uuid.UUID, from, to string, fields map[string]interface{}) error
	ReplaceItems(ctx context.Context, requestID uuid.UUID, items []model.RequestItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	AppendHistory(ctx context.Context, entry *model.ApprovalHistoryEntry) error
	ListHistory(ctx context.Context, requestID uuid.UUID) ([]model.ApprovalHistoryEntry, error)
}

type requestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, req *model.Request) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *requestRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	var req model.Request
	if err := GetDB(ctx, r.db).Preload("Items").Preload("Quotes").First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) FindByIDFull(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	var req model.Request
	err := GetDB(ctx, r.db).
		Preload("Requester").
		Preload("Department").
		Preload("Items").
		Preload("ProjectDetail.Milestones").
		Preload("Quotes").
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at asc, id asc")
		}).
		Preload("History.Actor").
		Preload("Attachments").
		First(&req, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) List(ctx context.Context, filter RequestFilter) ([]model.Request, int64, error) {
	db := GetDB(ctx, r.db)

	applyFilter := func(q *gorm.DB) *gorm.DB {
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.Type != "" {
			q = q.Where("type = ?", filter.Type)
		}
		if filter.RequesterID != nil {
			q = q.Where("requester_id = ?", *filter.RequesterID)
		}
		return q
	}

	var total int64
	if err := applyFilter(db.Model(&model.Request{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	var requests []model.Request
	err := applyFilter(db.Preload("Requester").Preload("Items")).
		Order("created_at DESC").
		Offset(offset).
		Limit(filter.Limit).
		Find(&requests).Error
	if err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

func (r *requestRepository) Save(ctx context.Context, req *model.Request) error {
	return GetDB(ctx, r.db).Save(req).Error
}

func (r *requestRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return GetDB(ctx, r.db).Model(&model.Request{}).Where("id = ?", id).Updates(fields).Error
}

// AdvanceStatus performs the optimistic compare-and-set that makes racing
// approvers safe: the UPDATE only matches while the row still holds the
// expected source status. Zero rows affected means another actor advanced
// the request first.
func (r *requestRepository) AdvanceStatus(ctx context.Context, id uuid.UUID, from, to string, fields map[string]interface{}) error {
	updates := map[string]interface{}{"status": to}
	for k, v := range fields {
		updates[k] = v
	}

	res := GetDB(ctx, r.db).Model(&model.Request{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleStatus
	}
	return nil
}

func (r *requestRepository) ReplaceItems(ctx context.Context, requestID uuid.UUID, items []model.RequestItem) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("request_id = ?", requestID).Delete(&model.RequestItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].RequestID = requestID
	}
	return db.Create(&items).Error
}

// Delete removes the request and every child row. A SUBMITTED request
// already carries history rows, so children go first; the cascading FKs
// from the model tags are a backstop, not something to rely on here.
func (r *requestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)

	if err := db.Where("request_id = ?", id).Delete(&model.ApprovalHistoryEntry{}).Error; err != nil {
		return err
	}
	if err := db.Where("request_id = ?", id).Delete(&model.Attachment{}).Error; err != nil {
		return err
	}
	if err := db.Where("request_id = ?", id).Delete(&model.PriceQuote{}).Error; err != nil {
		return err
	}

	var detail model.ProjectDetail
	err := db.Where("request_id = ?", id).First(&detail).Error
	switch {
	case err == nil:
		if err := db.Where("project_detail_id = ?", detail.ID).Delete(&model.Milestone{}).Error; err != nil {
			return err
		}
		if err := db.Delete(&detail).Error; err != nil {
			return err
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}

	if err := db.Where("request_id = ?", id).Delete(&model.RequestItem{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.Request{}).Error
}

func (r *requestRepository) AppendHistory(ctx context.Context, entry *model.ApprovalHistoryEntry) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *requestRepository) ListHistory(ctx context.Context, requestID uuid.UUID) ([]model.ApprovalHistoryEntry, error) {
	var entries []model.ApprovalHistoryEntry
	err := GetDB(ctx, r.db).
		Preload("Actor").
		Where("request_id = ?", requestID).
		Order("created_at asc, id asc").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
