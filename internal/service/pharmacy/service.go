package pharmacy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	model "github.com/zhouzirui/medassist/backend/internal/model/pharmacy"
)

var (
	ErrNotFound         = errors.New("pharmacy not found")
	ErrValidation       = errors.New("validation failed")
	ErrDuplicateLicense = errors.New("license number already registered")
)

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Name     string
	City     string
	IsActive *bool
}

// Service stores pharmacy records through gorm.
type Service struct {
	db *gorm.DB
}

// NewService wraps an already migrated database handle.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// List returns pharmacies ordered by name.
func (s *Service) List(ctx context.Context, f Filter) ([]model.Pharmacy, error) {
	q := s.db.WithContext(ctx).Model(&model.Pharmacy{})
	if name := strings.TrimSpace(f.Name); name != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}
	if city := strings.TrimSpace(f.City); city != "" {
		q = q.Where("LOWER(address_city) = ?", strings.ToLower(city))
	}
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}

	items := []model.Pharmacy{}
	if err := q.Order("name ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list pharmacies: %w", err)
	}
	return items, nil
}

// Get loads one pharmacy by id.
func (s *Service) Get(ctx context.Context, id string) (model.Pharmacy, error) {
	var p model.Pharmacy
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Pharmacy{}, ErrNotFound
	}
	if err != nil {
		return model.Pharmacy{}, fmt.Errorf("get pharmacy %s: %w", id, err)
	}
	return p, nil
}

// Create validates and inserts a new pharmacy with a generated id.
func (s *Service) Create(ctx context.Context, p model.Pharmacy) (model.Pharmacy, error) {
	if err := prepare(&p); err != nil {
		return model.Pharmacy{}, err
	}
	if err := s.checkLicense(ctx, p.LicenseNumber, ""); err != nil {
		return model.Pharmacy{}, err
	}

	p.ID = uuid.NewString()
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return model.Pharmacy{}, fmt.Errorf("create pharmacy: %w", err)
	}
	log.Printf("[pharmacy] created id=%s license=%s", p.ID, p.LicenseNumber)
	return p, nil
}

// Update replaces every editable field of an existing pharmacy.
func (s *Service) Update(ctx context.Context, id string, p model.Pharmacy) (model.Pharmacy, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return model.Pharmacy{}, err
	}
	if err := prepare(&p); err != nil {
		return model.Pharmacy{}, err
	}
	if err := s.checkLicense(ctx, p.LicenseNumber, id); err != nil {
		return model.Pharmacy{}, err
	}

	p.ID = existing.ID
	p.CreatedAt = existing.CreatedAt
	if err := s.db.WithContext(ctx).Save(&p).Error; err != nil {
		return model.Pharmacy{}, fmt.Errorf("update pharmacy %s: %w", id, err)
	}
	log.Printf("[pharmacy] updated id=%s", id)
	return p, nil
}

// Delete removes a pharmacy.
func (s *Service) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Pharmacy{})
	if res.Error != nil {
		return fmt.Errorf("delete pharmacy %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	log.Printf("[pharmacy] deleted id=%s", id)
	return nil
}

func (s *Service) checkLicense(ctx context.Context, license, excludeID string) error {
	q := s.db.WithContext(ctx).Model(&model.Pharmacy{}).Where("license_number = ?", license)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return fmt.Errorf("check license: %w", err)
	}
	if count > 0 {
		return ErrDuplicateLicense
	}
	return nil
}

func prepare(p *model.Pharmacy) error {
	p.Normalize()
	if problems := p.Validate(); len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}
