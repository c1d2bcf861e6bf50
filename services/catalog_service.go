package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"equipment_lending/db"
	"equipment_lending/lending"
	"equipment_lending/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Catalog is the equipment store.
type Catalog interface {
	CreateEquipment(ctx context.Context, e *models.Equipment) error
	FindEquipmentByID(ctx context.Context, id string) (*models.Equipment, error)
	ListEquipment(ctx context.Context, q db.EquipmentQuery) ([]models.Equipment, error)
	ListCategories(ctx context.Context) ([]string, error)
	UpdateEquipment(ctx context.Context, id string, p db.EquipmentPatch) (*models.Equipment, error)
	DeleteEquipment(ctx context.Context, id string) error
	CountEquipment(ctx context.Context) (db.EquipmentCounts, error)
}

type CategoryCache interface {
	Get(ctx context.Context) ([]string, bool, error)
	Set(ctx context.Context, cats []string) error
	Invalidate(ctx context.Context) error
}

type CatalogService struct {
	store Catalog
	cache CategoryCache // may be nil
	log   zerolog.Logger
}

func NewCatalogService(store Catalog, cache CategoryCache, log zerolog.Logger) *CatalogService {
	return &CatalogService{store: store, cache: cache, log: log.With().Str("service", "catalog").Logger()}
}

const (
	maxNameLen     = 100
	maxCategoryLen = 50
)

type EquipmentInput struct {
	Name        string
	Category    string
	Condition   string
	Quantity    int
	Description string
}

func checkText(field, v string, max int, required bool) (string, error) {
	v = strings.TrimSpace(v)
	if required && v == "" {
		return "", fmt.Errorf("%w: %s is required", lending.ErrValidation, field)
	}
	if utf8.RuneCountInString(v) > max {
		return "", fmt.Errorf("%w: %s longer than %d characters", lending.ErrValidation, field, max)
	}
	return v, nil
}

func (in EquipmentInput) validate() (models.Equipment, error) {
	var e models.Equipment
	var err error
	if e.Name, err = checkText("name", in.Name, maxNameLen, true); err != nil {
		return e, err
	}
	if e.Category, err = checkText("category", in.Category, maxCategoryLen, true); err != nil {
		return e, err
	}
	if e.Condition, err = lending.ParseCondition(in.Condition); err != nil {
		return e, err
	}
	if in.Quantity < 1 {
		return e, fmt.Errorf("%w: quantity must be at least 1, got %d", lending.ErrValidation, in.Quantity)
	}
	e.Quantity = in.Quantity
	if e.Description, err = checkText("description", in.Description, maxTextLen, false); err != nil {
		return e, err
	}
	return e, nil
}

// Create adds an item with every unit available.
func (s *CatalogService) Create(ctx context.Context, actor lending.Actor, in EquipmentInput) (*models.Equipment, error) {
	if err := actor.Allow(lending.OpManageCatalog); err != nil {
		return nil, err
	}
	e, err := in.validate()
	if err != nil {
		return nil, err
	}
	e.ID = uuid.NewString()
	e.AvailableQuantity = e.Quantity
	if err := s.store.CreateEquipment(ctx, &e); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	s.log.Info().Str("equipment", e.ID).Str("name", e.Name).Int("quantity", e.Quantity).Msg("equipment created")
	return &e, nil
}

// EquipmentUpdate is a partial edit; nil fields are left alone.
type EquipmentUpdate struct {
	Name        *string
	Category    *string
	Condition   *string
	Quantity    *int
	Description *string
}

func (s *CatalogService) Update(ctx context.Context, actor lending.Actor, id string, in EquipmentUpdate) (*models.Equipment, error) {
	if err := actor.Allow(lending.OpManageCatalog); err != nil {
		return nil, err
	}
	var p db.EquipmentPatch
	if in.Name != nil {
		v, err := checkText("name", *in.Name, maxNameLen, true)
		if err != nil {
			return nil, err
		}
		p.Name = &v
	}
	if in.Category != nil {
		v, err := checkText("category", *in.Category, maxCategoryLen, true)
		if err != nil {
			return nil, err
		}
		p.Category = &v
	}
	if in.Condition != nil {
		c, err := lending.ParseCondition(*in.Condition)
		if err != nil {
			return nil, err
		}
		p.Condition = &c
	}
	if in.Quantity != nil {
		if *in.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity must be at least 1, got %d", lending.ErrValidation, *in.Quantity)
		}
		p.Quantity = in.Quantity
	}
	if in.Description != nil {
		v, err := checkText("description", *in.Description, maxTextLen, false)
		if err != nil {
			return nil, err
		}
		p.Description = &v
	}
	e, err := s.store.UpdateEquipment(ctx, id, p)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	s.log.Info().Str("equipment", e.ID).Int("quantity", e.Quantity).Int("available", e.AvailableQuantity).Msg("equipment updated")
	return e, nil
}

func (s *CatalogService) Delete(ctx context.Context, actor lending.Actor, id string) error {
	if err := actor.Allow(lending.OpManageCatalog); err != nil {
		return err
	}
	if err := s.store.DeleteEquipment(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.log.Info().Str("equipment", id).Msg("equipment deleted")
	return nil
}

func (s *CatalogService) Get(ctx context.Context, actor lending.Actor, id string) (*models.Equipment, error) {
	if err := actor.Allow(lending.OpBrowseCatalog); err != nil {
		return nil, err
	}
	return s.store.FindEquipmentByID(ctx, id)
}

func (s *CatalogService) List(ctx context.Context, actor lending.Actor, q db.EquipmentQuery) ([]models.Equipment, error) {
	if err := actor.Allow(lending.OpBrowseCatalog); err != nil {
		return nil, err
	}
	return s.store.ListEquipment(ctx, q)
}

// Categories serves the distinct categories, from cache when possible. Cache
// failures are logged and fall through to the store.
func (s *CatalogService) Categories(ctx context.Context, actor lending.Actor) ([]string, error) {
	if err := actor.Allow(lending.OpBrowseCatalog); err != nil {
		return nil, err
	}
	if s.cache != nil {
		cats, ok, err := s.cache.Get(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("category cache read")
		} else if ok {
			return cats, nil
		}
	}
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cats); err != nil {
			s.log.Warn().Err(err).Msg("category cache write")
		}
	}
	return cats, nil
}

func (s *CatalogService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("category cache invalidate")
	}
}

type Dashboard struct {
	AdminName          string `json:"adminName"`
	TotalEquipment     int64  `json:"totalEquipment"`
	AvailableEquipment int64  `json:"availableEquipment"`
	BorrowedEquipment  int64  `json:"borrowedEquipment"`
}

// Dashboard counts catalog items. Borrowed means no unit is currently available.
func (s *CatalogService) Dashboard(ctx context.Context, actor lending.Actor, adminName string) (Dashboard, error) {
	if err := actor.Allow(lending.OpViewDashboard); err != nil {
		return Dashboard{}, err
	}
	c, err := s.store.CountEquipment(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{
		AdminName:          adminName,
		TotalEquipment:     c.Total,
		AvailableEquipment: c.Available,
		BorrowedEquipment:  c.Total - c.Available,
	}, nil
}
