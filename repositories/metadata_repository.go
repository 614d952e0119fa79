package repositories

import (
	"context"
	"sort"
	"strings"

	"custombuttons-restful/models"

	"gorm.io/gorm"
)

// DialogRef is an (id, label) pair of a service dialog.
type DialogRef struct {
	ID    uint
	Label string
}

// MetadataRepository reads the catalogs the OPTIONS document is built from.
type MetadataRepository interface {
	Dialogs(ctx context.Context) ([]DialogRef, error)
	RoleNames(ctx context.Context) ([]string, error)
	// DistinctInstances returns one instance per name under classPath, taken
	// from the highest priority enabled domain that defines it.
	DistinctInstances(ctx context.Context, classPath string) ([]models.AutomateInstance, error)
}

type metadataRepository struct {
	db *gorm.DB
}

func NewMetadataRepository(db *gorm.DB) MetadataRepository {
	return &metadataRepository{db: db}
}

func (r *metadataRepository) Dialogs(ctx context.Context) ([]DialogRef, error) {
	var dialogs []models.Dialog
	if err := r.db.WithContext(ctx).Select("id", "label").Find(&dialogs).Error; err != nil {
		return nil, err
	}
	refs := make([]DialogRef, len(dialogs))
	for i, d := range dialogs {
		refs[i] = DialogRef{ID: d.ID, Label: d.Label}
	}
	return refs, nil
}

func (r *metadataRepository) RoleNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := r.db.WithContext(ctx).Model(&models.Role{}).Pluck("name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

func (r *metadataRepository) DistinctInstances(ctx context.Context, classPath string) ([]models.AutomateInstance, error) {
	var instances []models.AutomateInstance
	err := r.db.WithContext(ctx).
		Joins("AutomateDomain").
		Where("LOWER(automate_instances.class_path) = ?", strings.ToLower(strings.Trim(classPath, "/"))).
		Where("AutomateDomain.enabled = ?", true).
		Find(&instances).Error
	if err != nil {
		return nil, err
	}

	// Highest priority first; equal priorities fall back to the domain name.
	sort.SliceStable(instances, func(i, j int) bool {
		di, dj := instances[i].AutomateDomain, instances[j].AutomateDomain
		if di.Priority != dj.Priority {
			return di.Priority > dj.Priority
		}
		return di.Name < dj.Name
	})

	seen := make(map[string]struct{}, len(instances))
	distinct := instances[:0]
	for _, inst := range instances {
		key := strings.ToLower(inst.Name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		distinct = append(distinct, inst)
	}
	return distinct, nil
}
