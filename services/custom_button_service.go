package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"custombuttons-restful/models"
	"custombuttons-restful/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CustomButtonService implements the custom_buttons operations. Capability
// checks happen before these methods are called.
type CustomButtonService interface {
	List(ctx context.Context, offset, limit int) ([]models.CustomButton, int64, error)
	Get(ctx context.Context, id uint) (*models.CustomButton, error)
	Create(ctx context.Context, attrs Attributes) (*models.CustomButton, error)
	// Edit changes only the submitted fields.
	Edit(ctx context.Context, id uint, attrs Attributes) (*models.CustomButton, error)
	// Replace overwrites every writable field; omitted optional fields are cleared.
	Replace(ctx context.Context, id uint, attrs Attributes) (*models.CustomButton, error)
	Patch(ctx context.Context, id uint, ops []PatchOperation) (*models.CustomButton, error)
	Delete(ctx context.Context, id uint) error
	BulkEdit(ctx context.Context, items []BulkItem) []BulkResult
	BulkDelete(ctx context.Context, items []BulkItem) []BulkResult
}

// BulkItem is one entry of a "resources" array. Err carries a decode failure
// for that entry alone.
type BulkItem struct {
	ID         uint
	Attributes Attributes
	Err        error
}

// BulkResult is the outcome of one BulkItem, in input order.
type BulkResult struct {
	ID     uint
	Button *models.CustomButton
	Err    error
}

type customButtonService struct {
	repo   repositories.CustomButtonRepository
	logger *zap.SugaredLogger
}

var _ CustomButtonService = (*customButtonService)(nil)

// NewCustomButtonService creates a new CustomButtonService instance
func NewCustomButtonService(repo repositories.CustomButtonRepository, logger *zap.SugaredLogger) CustomButtonService {
	return &customButtonService{repo: repo, logger: logger.Named("CustomButtonService")}
}

func (s *customButtonService) List(ctx context.Context, offset, limit int) ([]models.CustomButton, int64, error) {
	if offset < 0 {
		return nil, 0, invalid("offset", "must not be negative")
	}
	buttons, total, err := s.repo.FindAll(ctx, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list custom buttons: %w", err)
	}
	return buttons, total, nil
}

func (s *customButtonService) Get(ctx context.Context, id uint) (*models.CustomButton, error) {
	button, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError("get", id, err)
	}
	return button, nil
}

func (s *customButtonService) Create(ctx context.Context, attrs Attributes) (*models.CustomButton, error) {
	button := &models.CustomButton{
		GUID:    uuid.NewString(),
		Options: models.Options("{}"),
	}
	applyAttributes(button, attrs)
	if attrs.Name == nil {
		return nil, invalid("name", "is required")
	}
	if err := validate(button); err != nil {
		return nil, err
	}
	if err := s.checkUnique(ctx, s.repo, button); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, button); err != nil {
		return nil, fmt.Errorf("create custom button: %w", err)
	}
	s.logger.Infow("Created custom button", "id", button.ID, "name", button.Name)
	return button, nil
}

func (s *customButtonService) Edit(ctx context.Context, id uint, attrs Attributes) (*models.CustomButton, error) {
	return s.update(ctx, "edit", id, func(button *models.CustomButton) error {
		applyAttributes(button, attrs)
		return nil
	})
}

func (s *customButtonService) Replace(ctx context.Context, id uint, attrs Attributes) (*models.CustomButton, error) {
	if attrs.Name == nil {
		return nil, invalid("name", "is required")
	}
	return s.update(ctx, "replace", id, func(button *models.CustomButton) error {
		button.Description = ""
		button.AppliesToClass = ""
		button.AppliesToID = nil
		button.Options = models.Options("{}")
		applyAttributes(button, attrs)
		return nil
	})
}

func (s *customButtonService) Patch(ctx context.Context, id uint, ops []PatchOperation) (*models.CustomButton, error) {
	if len(ops) == 0 {
		return nil, invalid("", "patch requires at least one operation")
	}
	return s.update(ctx, "patch", id, func(button *models.CustomButton) error {
		for i, op := range ops {
			if err := op.apply(button); err != nil {
				return fmt.Errorf("operation %d: %w", i, err)
			}
		}
		return nil
	})
}

func (s *customButtonService) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError("delete", id, err)
	}
	s.logger.Infow("Deleted custom button", "id", id)
	return nil
}

func (s *customButtonService) BulkEdit(ctx context.Context, items []BulkItem) []BulkResult {
	results := make([]BulkResult, len(items))
	for i, item := range items {
		results[i] = BulkResult{ID: item.ID, Err: item.Err}
		if item.Err != nil {
			continue
		}
		results[i].Button, results[i].Err = s.Edit(ctx, item.ID, item.Attributes)
		if results[i].Err != nil {
			s.logger.Warnw("Bulk edit item failed", "id", item.ID, "error", results[i].Err)
		}
	}
	return results
}

func (s *customButtonService) BulkDelete(ctx context.Context, items []BulkItem) []BulkResult {
	results := make([]BulkResult, len(items))
	for i, item := range items {
		results[i] = BulkResult{ID: item.ID, Err: item.Err}
		if item.Err != nil {
			continue
		}
		results[i].Err = s.Delete(ctx, item.ID)
		if results[i].Err != nil {
			s.logger.Warnw("Bulk delete item failed", "id", item.ID, "error", results[i].Err)
		}
	}
	return results
}

// update runs mutate, validation and the uniqueness check in one store transaction.
func (s *customButtonService) update(ctx context.Context, op string, id uint, mutate func(*models.CustomButton) error) (*models.CustomButton, error) {
	button, err := s.repo.Update(ctx, id, func(tx repositories.CustomButtonRepository, button *models.CustomButton) error {
		if err := mutate(button); err != nil {
			return err
		}
		if err := validate(button); err != nil {
			return err
		}
		return s.checkUnique(ctx, tx, button)
	})
	if err != nil {
		return nil, storeError(op, id, err)
	}
	s.logger.Infow("Updated custom button", "op", op, "id", id)
	return button, nil
}

func (s *customButtonService) checkUnique(ctx context.Context, repo repositories.CustomButtonRepository, button *models.CustomButton) error {
	existing, err := repo.FindInScope(ctx, button.Name, button.AppliesToClass, button.AppliesToID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("check name uniqueness: %w", err)
	case existing.ID != button.ID:
		return invalid("name", "%q is already taken for this applies_to scope", button.Name)
	default:
		return nil
	}
}

func applyAttributes(button *models.CustomButton, attrs Attributes) {
	if attrs.Name != nil {
		button.Name = *attrs.Name
	}
	if attrs.Description != nil {
		button.Description = *attrs.Description
	}
	if attrs.AppliesToClass != nil {
		button.AppliesToClass = *attrs.AppliesToClass
	}
	if attrs.AppliesToIDSet {
		button.AppliesToID = attrs.AppliesToID
	}
	if attrs.Options != nil {
		button.Options = *attrs.Options
	}
}

func validate(button *models.CustomButton) error {
	if strings.TrimSpace(button.Name) == "" {
		return invalid("name", "can't be blank")
	}
	if button.AppliesToID != nil && button.AppliesToClass == "" {
		return invalid("applies_to_class", "is required when applies_to_id is set")
	}
	return nil
}

// storeError maps store failures onto the service error taxonomy.
func storeError(op string, id uint, err error) error {
	var verr *ValidationError
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s custom button %d: %w", op, id, ErrNotFound)
	case errors.As(err, &verr):
		return err
	default:
		return fmt.Errorf("%s custom button %d: %w", op, id, err)
	}
}

// PatchOperation is one entry of a PATCH body.
type PatchOperation struct {
	Action string          `json:"action"`
	Path   string          `json:"path"`
	Value  json.RawMessage `json:"value"`
}
