package repositories

import (
	"context"
	"errors"
	"math"
	"time"

	"custombuttons-restful/models"

	"github.com/VictoriaMetrics/metrics"
	"gorm.io/gorm"
)

// CustomButtonRepository is the button store.
type CustomButtonRepository interface {
	Create(ctx context.Context, button *models.CustomButton) error
	FindByID(ctx context.Context, id uint) (*models.CustomButton, error)
	// FindInScope returns the button named name in the given applies-to scope.
	FindInScope(ctx context.Context, name, appliesToClass string, appliesToID *uint) (*models.CustomButton, error)
	// Update loads the record inside a transaction, runs mutate on it and
	// saves the result. tx is bound to the same transaction; any error from
	// mutate rolls everything back.
	Update(ctx context.Context, id uint, mutate func(tx CustomButtonRepository, button *models.CustomButton) error) (*models.CustomButton, error)
	Delete(ctx context.Context, id uint) error
	FindAll(ctx context.Context, offset, limit int) ([]models.CustomButton, int64, error)
}

type customButtonRepository struct {
	db *gorm.DB
}

// NewCustomButtonRepository creates a new CustomButtonRepository instance
func NewCustomButtonRepository(db *gorm.DB) CustomButtonRepository {
	return &customButtonRepository{db: db}
}

func observe(operation string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.GetOrCreateCounter(`store_operations_total{operation="` + operation + `",status="` + status + `"}`).Inc()
	metrics.GetOrCreateHistogram(`store_operation_duration_seconds{operation="` + operation + `"}`).UpdateDuration(start)
}

func (r *customButtonRepository) Create(ctx context.Context, button *models.CustomButton) error {
	start := time.Now()
	err := r.db.WithContext(ctx).Create(button).Error
	observe("create", start, err)
	return err
}

func (r *customButtonRepository) FindByID(ctx context.Context, id uint) (*models.CustomButton, error) {
	start := time.Now()
	var button models.CustomButton
	err := r.db.WithContext(ctx).First(&button, id).Error
	observe("find", start, ignoreNotFound(err))
	if err != nil {
		return nil, err
	}
	return &button, nil
}

func (r *customButtonRepository) FindInScope(ctx context.Context, name, appliesToClass string, appliesToID *uint) (*models.CustomButton, error) {
	var button models.CustomButton
	q := r.db.WithContext(ctx).Where("name = ? AND applies_to_class = ?", name, appliesToClass)
	if appliesToID == nil {
		q = q.Where("applies_to_id IS NULL")
	} else {
		q = q.Where("applies_to_id = ?", *appliesToID)
	}
	if err := q.First(&button).Error; err != nil {
		return nil, err
	}
	return &button, nil
}

func (r *customButtonRepository) Update(ctx context.Context, id uint, mutate func(tx CustomButtonRepository, button *models.CustomButton) error) (*models.CustomButton, error) {
	start := time.Now()
	var button models.CustomButton
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&button, id).Error; err != nil {
			return err
		}
		if err := mutate(&customButtonRepository{db: tx}, &button); err != nil {
			return err
		}
		return tx.Save(&button).Error
	})
	observe("update", start, ignoreNotFound(err))
	if err != nil {
		return nil, err
	}
	return &button, nil
}

func (r *customButtonRepository) Delete(ctx context.Context, id uint) error {
	start := time.Now()
	result := r.db.WithContext(ctx).Delete(&models.CustomButton{}, id)
	err := result.Error
	if err == nil && result.RowsAffected == 0 {
		err = gorm.ErrRecordNotFound
	}
	observe("delete", start, ignoreNotFound(err))
	return err
}

// FindAll returns a page ordered by id and the total count. limit <= 0 means no limit.
func (r *customButtonRepository) FindAll(ctx context.Context, offset, limit int) ([]models.CustomButton, int64, error) {
	start := time.Now()
	var buttons []models.CustomButton
	var total int64

	db := r.db.WithContext(ctx)
	if err := db.Model(&models.CustomButton{}).Count(&total).Error; err != nil {
		observe("list", start, err)
		return nil, 0, err
	}

	if limit <= 0 {
		limit = math.MaxInt32
	}
	q := db.Order("id").Offset(offset).Limit(limit)
	err := q.Find(&buttons).Error
	observe("list", start, err)
	if err != nil {
		return nil, 0, err
	}

	return buttons, total, nil
}

func ignoreNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}
