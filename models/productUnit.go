package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/bom_backend/config"
	"github.com/mmdatafocus/bom_backend/units"
	"github.com/mmdatafocus/bom_backend/utils"
	"github.com/shopspring/decimal"
)

// ProductUnit is a tenant defined unit layered on top of the built-in ones.
// FactorToBase is in the family's base unit (gram, millilitre, piece).
type ProductUnit struct {
	ID           int             `gorm:"primary_key" json:"id"`
	BusinessId   string          `gorm:"index;not null" json:"business_id"`
	Name         string          `gorm:"size:50;not null" json:"name"`
	Abbreviation string          `gorm:"size:20;not null" json:"abbreviation"`
	Family       units.Family    `gorm:"size:20;not null;default:'custom'" json:"family"`
	FactorToBase decimal.Decimal `gorm:"type:decimal(20,8);not null;default:1" json:"factor_to_base"`
	Precision    int             `gorm:"not null;default:0" json:"precision"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProductUnit struct {
	Name         string          `json:"name" validate:"required,max=50"`
	Abbreviation string          `json:"abbreviation" validate:"required,max=20"`
	Family       units.Family    `json:"family" validate:"omitempty,oneof=mass volume count custom"`
	FactorToBase decimal.Decimal `json:"factor_to_base"`
	Precision    int             `json:"precision" validate:"min=0,max=4"`
}

func (input *NewProductUnit) validate(ctx context.Context, businessId string, id int) error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if input.Family == "" {
		input.Family = units.Custom
	}
	if input.FactorToBase.IsZero() && input.Family == units.Custom {
		input.FactorToBase = decimal.NewFromInt(1)
	}
	if !input.FactorToBase.IsPositive() {
		return errors.New("factor to base must be greater than 0")
	}
	// both the name and the abbreviation are registered in the converter
	standard := units.Standard()
	for _, name := range []string{input.Abbreviation, input.Name} {
		if builtin, ok := standard.Lookup(name); ok {
			return errors.New("unit " + name + " is built in as " + builtin.Name)
		}
	}
	if err := utils.ValidateUnique[ProductUnit](ctx, businessId, "name", input.Name, id); err != nil {
		return err
	}
	if err := utils.ValidateUnique[ProductUnit](ctx, businessId, "abbreviation", input.Abbreviation, id); err != nil {
		return err
	}
	return validateUnitNamesFree(ctx, businessId, id, input.Name, input.Abbreviation)
}

// validateUnitNamesFree rejects names that another tenant unit already
// answers to, compared the way the converter looks them up.
func validateUnitNamesFree(ctx context.Context, businessId string, id int, names ...string) error {
	existing, err := utils.FetchAllModels[ProductUnit](ctx, businessId)
	if err != nil {
		return err
	}
	taken := make(map[string]string, len(existing)*2)
	for _, pu := range existing {
		if pu.ID == id {
			continue
		}
		taken[units.Normalize(pu.Name)] = pu.Abbreviation
		taken[units.Normalize(pu.Abbreviation)] = pu.Abbreviation
	}
	for _, name := range names {
		if owner, ok := taken[units.Normalize(name)]; ok {
			return errors.New("unit name " + name + " is already used by " + owner)
		}
	}
	return nil
}

func (pu ProductUnit) toUnit() units.Unit {
	return units.Unit{
		Name:         pu.Abbreviation,
		Family:       pu.Family,
		FactorToBase: pu.FactorToBase.InexactFloat64(),
		Aliases:      []string{pu.Name},
	}
}

func CreateProductUnit(ctx context.Context, input *NewProductUnit) (*ProductUnit, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	unit := ProductUnit{
		BusinessId:   businessId,
		Name:         input.Name,
		Abbreviation: input.Abbreviation,
		Family:       input.Family,
		FactorToBase: input.FactorToBase,
		Precision:    input.Precision,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&unit).Error; err != nil {
		return nil, err
	}
	if err := config.RemoveRedisKey(utils.UnitListCacheKey(businessId)); err != nil {
		return nil, err
	}
	return &unit, nil
}

// UpdateProductUnit keeps the abbreviation, since catalog lines refer to units by it.
func UpdateProductUnit(ctx context.Context, id int, input *NewProductUnit) (*ProductUnit, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	unit, err := utils.FetchModel[ProductUnit](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if input.Abbreviation != unit.Abbreviation {
		return nil, errors.New("abbreviation cannot be changed")
	}
	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(unit).Updates(map[string]interface{}{
		"Name":         input.Name,
		"Family":       input.Family,
		"FactorToBase": input.FactorToBase,
		"Precision":    input.Precision,
	}).Error
	if err != nil {
		return nil, err
	}
	if err := config.RemoveRedisKey(utils.UnitListCacheKey(businessId)); err != nil {
		return nil, err
	}
	return unit, nil
}

func DeleteProductUnit(ctx context.Context, id int) (*ProductUnit, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	result, err := utils.FetchModel[ProductUnit](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	// don't delete if the unit is used by a raw item or a composite line
	names := []string{result.Abbreviation, result.Name}
	count, err := utils.ResourceCountWhere[RawItem](ctx, businessId, "native_unit IN ?", names)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("used by raw item")
	}
	count, err = utils.ResourceCountWhere[CompositeLine](ctx, businessId, "unit IN ?", names)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("used by composite item")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(result).Error; err != nil {
		return nil, err
	}
	if err := config.RemoveRedisKey(utils.UnitListCacheKey(businessId)); err != nil {
		return nil, err
	}
	return result, nil
}

func GetProductUnits(ctx context.Context, name *string) ([]*ProductUnit, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	var results []*ProductUnit
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// LoadUnitConverter returns the built-in units plus the business's own.
// The unit list is cached in redis for CACHE_LIFESPAN.
func LoadUnitConverter(ctx context.Context, businessId string) (*units.Converter, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}
	var list []*ProductUnit
	cacheKey := utils.UnitListCacheKey(businessId)
	exists, err := config.GetRedisObject(cacheKey, &list)
	if err != nil {
		config.LogWarning(config.GetLogger(), "models", "LoadUnitConverter", "read unit cache", businessId, err.Error())
		exists = false
	}
	if !exists {
		list, err = utils.FetchAllModels[ProductUnit](ctx, businessId)
		if err != nil {
			return nil, err
		}
		if err := config.SetRedisObject(cacheKey, list, utils.GetCacheLifespan()); err != nil {
			config.LogWarning(config.GetLogger(), "models", "LoadUnitConverter", "write unit cache", businessId, err.Error())
		}
	}

	converter := units.Standard().Clone()
	for _, pu := range list {
		if err := converter.Register(pu.toUnit()); err != nil {
			return nil, err
		}
	}
	return converter, nil
}
