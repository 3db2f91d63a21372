package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/cobrien/resale-tracker/internal/models"
	"github.com/cobrien/resale-tracker/internal/normalize"
)

var (
	// ErrFallbackSource guards the designated "Other" source against deletion.
	ErrFallbackSource = errors.New("fallback_source_protected")
	// ErrSourceExists rejects renames and creates that would collide with
	// another source, case-insensitively.
	ErrSourceExists = errors.New("source_already_exists")
	// ErrSameSource rejects merging a source into itself.
	ErrSameSource = errors.New("cannot_merge_into_self")
)

// SourceUsage is a settings-view row: a source plus how many items cite it.
type SourceUsage struct {
	models.PurchaseSource
	ItemCount int64
}

// SourceChange records one item rewrite from a batch normalization pass.
type SourceChange struct {
	ItemID uint
	From   string
	To     string
}

// SourceService maintains the canonical purchase-source vocabulary. Items
// reference sources by name, so every rename, merge and delete rewrites the
// referencing item rows in the same transaction as the source change.
type SourceService struct{ DB *gorm.DB }

func NewSourceService(db *gorm.DB) *SourceService { return &SourceService{DB: db} }

func (s *SourceService) findByName(tx *gorm.DB, name string) (*models.PurchaseSource, error) {
	var src models.PurchaseSource
	err := tx.Where("lower(name) = lower(?)", name).First(&src).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &src, nil
}

// Ensure normalizes raw and returns the matching source record, creating it
// if this canonical name has never been used. The canonical name is returned
// for writing onto the referencing item or lot.
func (s *SourceService) Ensure(raw string) (string, error) {
	canonical := normalize.Source(raw)
	if canonical == "" {
		return "", errors.New("empty_source")
	}
	existing, err := s.findByName(s.DB, canonical)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return existing.Name, nil
	}
	src := models.PurchaseSource{Name: canonical, Active: true}
	if err := s.DB.Create(&src).Error; err != nil {
		return "", err
	}
	return src.Name, nil
}

// List returns sources ordered case-insensitively by name, with item usage
// counts for the settings view.
func (s *SourceService) List() ([]SourceUsage, error) {
	var sources []models.PurchaseSource
	if err := s.DB.Order("lower(name) asc").Find(&sources).Error; err != nil {
		return nil, err
	}
	out := make([]SourceUsage, 0, len(sources))
	for _, src := range sources {
		var count int64
		if err := s.DB.Model(&models.Item{}).Where("purchase_source = ?", src.Name).Count(&count).Error; err != nil {
			return nil, err
		}
		out = append(out, SourceUsage{PurchaseSource: src, ItemCount: count})
	}
	return out, nil
}

// Create adds a source explicitly from the settings form. The name goes
// through the normalizer first so the settings path cannot introduce
// near-duplicates the entry path would have collapsed.
func (s *SourceService) Create(raw string) (*models.PurchaseSource, error) {
	canonical := normalize.Source(raw)
	if canonical == "" {
		return nil, errors.New("empty_source")
	}
	existing, err := s.findByName(s.DB, canonical)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrSourceExists
	}
	src := models.PurchaseSource{Name: canonical, Active: true}
	if err := s.DB.Create(&src).Error; err != nil {
		return nil, err
	}
	return &src, nil
}

// Rename changes a source's name and rewrites every referencing item
// atomically. The fallback source keeps its name.
func (s *SourceService) Rename(id uint, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return errors.New("empty_source")
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var src models.PurchaseSource
		if err := tx.First(&src, id).Error; err != nil {
			return err
		}
		if src.Name == models.FallbackSourceName {
			return ErrFallbackSource
		}
		other, err := s.findByName(tx, newName)
		if err != nil {
			return err
		}
		if other != nil && other.ID != src.ID {
			return ErrSourceExists
		}
		oldName := src.Name
		src.Name = newName
		if err := tx.Save(&src).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Item{}).Where("purchase_source = ?", oldName).
			Update("purchase_source", newName).Error; err != nil {
			return err
		}
		return tx.Model(&models.Lot{}).Where("purchase_source = ?", oldName).
			Update("purchase_source", newName).Error
	})
}

// Merge reassigns every item from one source to another and deletes the
// merged-from record, all in one transaction.
func (s *SourceService) Merge(fromID, intoID uint) error {
	if fromID == intoID {
		return ErrSameSource
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var from, into models.PurchaseSource
		if err := tx.First(&from, fromID).Error; err != nil {
			return err
		}
		if err := tx.First(&into, intoID).Error; err != nil {
			return err
		}
		if from.Name == models.FallbackSourceName {
			return ErrFallbackSource
		}
		if err := tx.Model(&models.Item{}).Where("purchase_source = ?", from.Name).
			Update("purchase_source", into.Name).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Lot{}).Where("purchase_source = ?", from.Name).
			Update("purchase_source", into.Name).Error; err != nil {
			return err
		}
		return tx.Delete(&from).Error
	})
}

// Delete removes a source, reassigning its items to the fallback "Other".
// The fallback itself cannot be deleted.
func (s *SourceService) Delete(id uint) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var src models.PurchaseSource
		if err := tx.First(&src, id).Error; err != nil {
			return err
		}
		if src.Name == models.FallbackSourceName {
			return ErrFallbackSource
		}
		fallback, err := s.findByName(tx, models.FallbackSourceName)
		if err != nil {
			return err
		}
		if fallback == nil {
			fb := models.PurchaseSource{Name: models.FallbackSourceName, Active: true}
			if err := tx.Create(&fb).Error; err != nil {
				return err
			}
			fallback = &fb
		}
		if err := tx.Model(&models.Item{}).Where("purchase_source = ?", src.Name).
			Update("purchase_source", fallback.Name).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Lot{}).Where("purchase_source = ?", src.Name).
			Update("purchase_source", fallback.Name).Error; err != nil {
			return err
		}
		return tx.Delete(&src).Error
	})
}

// SetActive toggles whether a source appears in entry-form dropdowns.
func (s *SourceService) SetActive(id uint, active bool) error {
	return s.DB.Model(&models.PurchaseSource{}).Where("id = ?", id).
		Update("active", active).Error
}

// Active lists active sources for entry-form dropdowns.
func (s *SourceService) Active() ([]models.PurchaseSource, error) {
	var sources []models.PurchaseSource
	if err := s.DB.Where("active = ?", true).Order("lower(name) asc").Find(&sources).Error; err != nil {
		return nil, err
	}
	return sources, nil
}

// NormalizeAll runs the normalizer over every stored item as a one-shot
// reconciliation. With apply false it only reports what would change. When
// applying, item rewrites run in one transaction and each new canonical name
// gets a source record.
func (s *SourceService) NormalizeAll(apply bool) ([]SourceChange, error) {
	var items []models.Item
	if err := s.DB.Select("id", "purchase_source").Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	var changes []SourceChange
	for _, it := range items {
		canonical := normalize.Source(it.PurchaseSource)
		if canonical != it.PurchaseSource {
			changes = append(changes, SourceChange{ItemID: it.ID, From: it.PurchaseSource, To: canonical})
		}
	}
	if !apply || len(changes) == 0 {
		return changes, nil
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		for _, ch := range changes {
			if err := tx.Model(&models.Item{}).Where("id = ?", ch.ItemID).
				Update("purchase_source", ch.To).Error; err != nil {
				return err
			}
			existing, err := s.findByName(tx, ch.To)
			if err != nil {
				return err
			}
			if existing == nil {
				if err := tx.Create(&models.PurchaseSource{Name: ch.To, Active: true}).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changes, nil
}
