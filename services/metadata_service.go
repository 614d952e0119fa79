package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"custombuttons-restful/models"
	"custombuttons-restful/repositories"

	"go.uber.org/zap"
)

const optionsCacheKey = "custom_buttons:options"

// OptionsDocument is the body of OPTIONS /api/custom_buttons.
type OptionsDocument struct {
	CustomButtonTypes              map[string]string `json:"custom_button_types"`
	ServiceDialogs                 []DialogPair      `json:"service_dialogs"`
	DistinctInstancesAcrossDomains []string          `json:"distinct_instances_across_domains"`
	UserRoles                      []string          `json:"user_roles"`
}

// DialogPair renders as a two element array: [id, label].
type DialogPair struct {
	ID    uint
	Label string
}

func (p DialogPair) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{p.ID, p.Label})
}

func (p *DialogPair) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("dialog pair must have 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &p.ID); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &p.Label)
}

// DocumentCache stores rendered documents. Implementations may expire entries.
type DocumentCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// MetadataService builds the OPTIONS document. It never writes to the store.
type MetadataService interface {
	Options(ctx context.Context) (*OptionsDocument, error)
}

type metadataService struct {
	repo      repositories.MetadataRepository
	classPath string
	cache     DocumentCache
	logger    *zap.SugaredLogger
}

// NewMetadataService creates a MetadataService. cache may be nil.
func NewMetadataService(repo repositories.MetadataRepository, classPath string, cache DocumentCache, logger *zap.SugaredLogger) MetadataService {
	return &metadataService{repo: repo, classPath: classPath, cache: cache, logger: logger.Named("MetadataService")}
}

func (s *metadataService) Options(ctx context.Context) (*OptionsDocument, error) {
	if doc, ok := s.cached(ctx); ok {
		return doc, nil
	}

	dialogs, err := s.repo.Dialogs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dialogs: %w", err)
	}
	instances, err := s.repo.DistinctInstances(ctx, s.classPath)
	if err != nil {
		return nil, fmt.Errorf("load automate instances: %w", err)
	}
	roles, err := s.repo.RoleNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("load role names: %w", err)
	}

	doc := &OptionsDocument{
		CustomButtonTypes:              make(map[string]string, len(models.CustomButtonTypes)),
		ServiceDialogs:                 make([]DialogPair, 0, len(dialogs)),
		DistinctInstancesAcrossDomains: make([]string, 0, len(instances)),
		UserRoles:                      append(make([]string, 0, len(roles)), roles...),
	}
	for k, v := range models.CustomButtonTypes {
		doc.CustomButtonTypes[k] = v
	}
	for _, d := range dialogs {
		doc.ServiceDialogs = append(doc.ServiceDialogs, DialogPair{ID: d.ID, Label: d.Label})
	}
	sort.Slice(doc.ServiceDialogs, func(i, j int) bool {
		a, b := doc.ServiceDialogs[i], doc.ServiceDialogs[j]
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		return a.Label < b.Label
	})
	for _, inst := range instances {
		doc.DistinctInstancesAcrossDomains = append(doc.DistinctInstancesAcrossDomains, inst.Name)
	}
	sort.Strings(doc.DistinctInstancesAcrossDomains)
	sort.Strings(doc.UserRoles)

	s.store(ctx, doc)
	return doc, nil
}

// cached and store treat the cache as best effort: failures are logged and
// the document is rebuilt from the store.
func (s *metadataService) cached(ctx context.Context) (*OptionsDocument, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, ok, err := s.cache.Get(ctx, optionsCacheKey)
	if err != nil {
		s.logger.Warnw("Metadata cache read failed", "key", optionsCacheKey, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var doc OptionsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warnw("Discarding undecodable cached metadata", "key", optionsCacheKey, "error", err)
		return nil, false
	}
	return &doc, true
}

func (s *metadataService) store(ctx context.Context, doc *OptionsDocument) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(doc)
	if err != nil {
		s.logger.Warnw("Encoding metadata for cache failed", "error", err)
		return
	}
	if err := s.cache.Set(ctx, optionsCacheKey, data); err != nil {
		s.logger.Warnw("Metadata cache write failed", "key", optionsCacheKey, "error", err)
	}
}
