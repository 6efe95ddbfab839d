package models

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/mmdatafocus/bom_backend/bom"
	"github.com/mmdatafocus/bom_backend/config"
	"github.com/mmdatafocus/bom_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ComponentKind string

const (
	ComponentKindRaw       ComponentKind = "R"
	ComponentKindComposite ComponentKind = "C"
)

// CompositeItem is the persisted Mapping of a composite. Lines are stored flat;
// override lines point at the composite line they replace the mapping of.
type CompositeItem struct {
	ID          int             `gorm:"primary_key" json:"id"`
	BusinessId  string          `gorm:"size:64;not null;uniqueIndex:idx_composite_items_business_subject,priority:1" json:"business_id"`
	SubjectId   string          `gorm:"size:100;not null;uniqueIndex:idx_composite_items_business_subject,priority:2" json:"subject_id"`
	DisplayName string          `gorm:"size:255;not null" json:"display_name"`
	Lines       []CompositeLine `gorm:"foreignKey:CompositeItemId" json:"lines"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type CompositeLine struct {
	ID              int             `gorm:"primary_key" json:"id"`
	BusinessId      string          `gorm:"size:64;not null;index" json:"business_id"`
	CompositeItemId int             `gorm:"index;not null" json:"composite_item_id"`
	ParentLineId    *int            `gorm:"index" json:"parent_line_id"`
	SeqNo           int             `gorm:"not null" json:"seq_no"`
	LineKind        ComponentKind   `gorm:"size:1;not null" json:"line_kind"`
	RawItemCode     string          `gorm:"size:100;index" json:"raw_item_code"`
	NestedSubjectId string          `gorm:"size:100;index" json:"nested_subject_id"`
	Quantity        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	Unit            string          `gorm:"size:20" json:"unit"`
	ModifierScope   string          `gorm:"size:100;index" json:"modifier_scope"`
}

type NewCompositeItem struct {
	SubjectId   string             `json:"subject_id" validate:"required,max=100"`
	DisplayName string             `json:"display_name" validate:"required,max=255"`
	Components  []NewComponentLine `json:"components" validate:"dive"`
}

type NewComponentLine struct {
	Kind            ComponentKind      `json:"kind" validate:"required,oneof=R C"`
	RawItemCode     string             `json:"raw_item_code" validate:"required_if=Kind R,max=100"`
	Unit            string             `json:"unit" validate:"required_if=Kind R,max=20"`
	NestedSubjectId string             `json:"nested_subject_id" validate:"required_if=Kind C,max=100"`
	Quantity        decimal.Decimal    `json:"quantity"`
	ModifierScope   string             `json:"modifier_scope" validate:"max=100"`
	Overrides       []NewComponentLine `json:"overrides" validate:"dive"`
}

// catalogRefs collects what a line tree points at, for existence checks.
type catalogRefs struct {
	rawCodes  []string
	units     []string
	modifiers []string
}

func (refs *catalogRefs) collect(subjectId string, lines []NewComponentLine) error {
	for _, line := range lines {
		// stored as decimal(20,4)
		if !line.Quantity.Round(4).IsPositive() {
			return errors.New("quantity must be at least 0.0001")
		}
		if line.ModifierScope != "" {
			refs.modifiers = append(refs.modifiers, line.ModifierScope)
		}
		switch line.Kind {
		case ComponentKindRaw:
			if len(line.Overrides) > 0 {
				return errors.New("raw item line cannot have overrides")
			}
			refs.rawCodes = append(refs.rawCodes, line.RawItemCode)
			refs.units = append(refs.units, line.Unit)
		case ComponentKindComposite:
			if line.NestedSubjectId == subjectId {
				return errors.New("composite item cannot contain itself")
			}
			if err := refs.collect(subjectId, line.Overrides); err != nil {
				return err
			}
		}
	}
	return nil
}

func (input *NewCompositeItem) validate(ctx context.Context, businessId string, id int) error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	var refs catalogRefs
	if err := refs.collect(input.SubjectId, input.Components); err != nil {
		return err
	}
	if err := utils.ValidateUnique[CompositeItem](ctx, businessId, "subject_id", input.SubjectId, id); err != nil {
		return err
	}
	count, err := utils.ResourceCountWhere[RawItem](ctx, businessId, "code = ?", input.SubjectId)
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.New("subject id is already a raw item code")
	}
	if err := utils.ValidateResourcesExist[RawItem](ctx, businessId, "code", refs.rawCodes, "raw item not found"); err != nil {
		return err
	}
	if err := utils.ValidateResourcesExist[ProductModifier](ctx, businessId, "name", refs.modifiers, "modifier not found"); err != nil {
		return err
	}
	converter, err := LoadUnitConverter(ctx, businessId)
	if err != nil {
		return err
	}
	for _, unit := range utils.UniqueSlice(refs.units) {
		if !converter.Known(unit) {
			return errors.New("unknown unit " + unit)
		}
	}
	return nil
}

// createCompositeLines inserts lines in order, then each line's overrides under it.
func createCompositeLines(tx *gorm.DB, item *CompositeItem, parentLineId *int, lines []NewComponentLine) ([]CompositeLine, error) {
	var created []CompositeLine
	for i, input := range lines {
		line := CompositeLine{
			BusinessId:      item.BusinessId,
			CompositeItemId: item.ID,
			ParentLineId:    parentLineId,
			SeqNo:           i + 1,
			LineKind:        input.Kind,
			Quantity:        input.Quantity,
			ModifierScope:   input.ModifierScope,
		}
		if input.Kind == ComponentKindRaw {
			line.RawItemCode = input.RawItemCode
			line.Unit = input.Unit
		} else {
			line.NestedSubjectId = input.NestedSubjectId
		}
		if err := tx.Create(&line).Error; err != nil {
			return nil, err
		}
		created = append(created, line)

		lineId := line.ID
		overrides, err := createCompositeLines(tx, item, &lineId, input.Overrides)
		if err != nil {
			return nil, err
		}
		created = append(created, overrides...)
	}
	return created, nil
}

func CreateCompositeItem(ctx context.Context, input *NewCompositeItem) (*CompositeItem, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	release, err := utils.BusinessLock(ctx, businessId, "catalogLock", "compositeItem.go", "CreateCompositeItem")
	if err != nil {
		return nil, err
	}
	defer release()

	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	item := CompositeItem{
		BusinessId:  businessId,
		SubjectId:   input.SubjectId,
		DisplayName: input.DisplayName,
	}
	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if err := tx.Omit("Lines").Create(&item).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	lines, err := createCompositeLines(tx, &item, nil, input.Components)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	item.Lines = lines
	InvalidateMapping(businessId, item.SubjectId)
	return &item, nil
}

// UpdateCompositeItem replaces display name and every line. The subject id is
// what other composites nest by, so it stays fixed.
func UpdateCompositeItem(ctx context.Context, id int, input *NewCompositeItem) (*CompositeItem, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	release, err := utils.BusinessLock(ctx, businessId, "catalogLock", "compositeItem.go", "UpdateCompositeItem")
	if err != nil {
		return nil, err
	}
	defer release()

	item, err := utils.FetchModel[CompositeItem](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if input.SubjectId != item.SubjectId {
		return nil, errors.New("subject id cannot be changed")
	}
	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if err := tx.Model(item).Update("DisplayName", input.DisplayName).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Where("business_id = ? AND composite_item_id = ?", businessId, item.ID).Delete(&CompositeLine{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	lines, err := createCompositeLines(tx, item, nil, input.Components)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	item.DisplayName = input.DisplayName
	item.Lines = lines
	InvalidateMapping(businessId, item.SubjectId)
	return item, nil
}

func DeleteCompositeItem(ctx context.Context, id int) (*CompositeItem, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	release, err := utils.BusinessLock(ctx, businessId, "catalogLock", "compositeItem.go", "DeleteCompositeItem")
	if err != nil {
		return nil, err
	}
	defer release()

	result, err := utils.FetchModel[CompositeItem](ctx, businessId, id, "Lines")
	if err != nil {
		return nil, err
	}
	count, err := utils.ResourceCountWhere[CompositeLine](ctx, businessId, "nested_subject_id = ?", result.SubjectId)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("used by composite item")
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if err := tx.Where("business_id = ? AND composite_item_id = ?", businessId, result.ID).Delete(&CompositeLine{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Delete(result).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	InvalidateMapping(businessId, result.SubjectId)
	return result, nil
}

func GetCompositeItem(ctx context.Context, id int) (*CompositeItem, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[CompositeItem](ctx, businessId, id, "Lines")
}

func GetCompositeItemBySubject(ctx context.Context, subjectId string) (*CompositeItem, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	item, err := findCompositeItem(ctx, businessId, subjectId)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, utils.ErrorRecordNotFound
	}
	return item, nil
}

func GetCompositeItems(ctx context.Context, name *string) ([]*CompositeItem, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("display_name LIKE ? OR subject_id LIKE ?", "%"+*name+"%", "%"+*name+"%")
	}
	var results []*CompositeItem
	if err := dbCtx.Order("subject_id").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetCatalogBusinessIds lists every business that has composite items. It
// reads across tenants, so the tenant guard is bypassed for this query only.
func GetCatalogBusinessIds(ctx context.Context) ([]string, error) {
	var ids []string
	err := config.GetDB().WithContext(utils.SetSkipTenantScopeInContext(ctx, true)).
		Model(&CompositeItem{}).
		Distinct("business_id").
		Order("business_id").
		Pluck("business_id", &ids).Error
	return ids, err
}

func findCompositeItem(ctx context.Context, businessId string, subjectId string) (*CompositeItem, error) {
	var items []*CompositeItem
	err := config.GetDB().WithContext(ctx).
		Preload("Lines", "business_id = ?", businessId).
		Where("business_id = ? AND subject_id = ?", businessId, subjectId).
		Limit(1).Find(&items).Error
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

// ToMapping rebuilds the component tree, ordering siblings by SeqNo.
func (item CompositeItem) ToMapping() bom.Mapping {
	children := make(map[int][]CompositeLine)
	for _, line := range item.Lines {
		parent := utils.DereferencePtr(line.ParentLineId)
		children[parent] = append(children[parent], line)
	}
	for _, lines := range children {
		sort.Slice(lines, func(i, j int) bool { return lines[i].SeqNo < lines[j].SeqNo })
	}
	return bom.Mapping{
		SubjectId:   item.SubjectId,
		DisplayName: item.DisplayName,
		Components:  buildComponents(children, 0),
	}
}

func buildComponents(children map[int][]CompositeLine, parentLineId int) []bom.Component {
	lines := children[parentLineId]
	components := make([]bom.Component, 0, len(lines))
	for _, line := range lines {
		switch line.LineKind {
		case ComponentKindRaw:
			components = append(components, bom.RawComponent{
				RawItemId:     line.RawItemCode,
				Quantity:      line.Quantity.InexactFloat64(),
				Unit:          line.Unit,
				ModifierScope: line.ModifierScope,
			})
		case ComponentKindComposite:
			components = append(components, bom.CompositeComponent{
				NestedId:      line.NestedSubjectId,
				Quantity:      line.Quantity.InexactFloat64(),
				ModifierScope: line.ModifierScope,
				Overrides:     buildComponents(children, line.ID),
			})
		}
	}
	return components
}
