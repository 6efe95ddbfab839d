package utils

import (
	"context"
	"errors"
	"reflect"

	"github.com/mmdatafocus/bom_backend/config"
)

// check that every value of column exists for the business, message is returned otherwise
func ValidateResourcesExist[M any, V comparable](ctx context.Context, businessId string, column string, values []V, message string) error {
	unq := UniqueSlice(values)
	if len(unq) == 0 {
		return nil
	}
	count, err := ResourceCountWhere[M](ctx, businessId, column+" IN ?", unq)
	if err != nil {
		return err
	}
	if count != int64(len(unq)) {
		return errors.New(message)
	}
	return nil
}

func ValidateUnique[T any](ctx context.Context, businessId string, column string, value interface{}, exceptId interface{}) error {
	var count int64
	var err error
	if reflect.ValueOf(exceptId).IsZero() {
		count, err = ResourceCountWhere[T](ctx, businessId, column+" = ?", value)
	} else {
		count, err = ResourceCountWhere[T](ctx, businessId, column+" = ? AND NOT id = ?", value, exceptId)
	}
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.New("duplicate " + column)
	}
	return nil
}

// count records, using WHERE business_id = ? AND $condition
// business_id can be blank for cross-tenant reads
func ResourceCountWhere[T any](ctx context.Context, businessId string, condition string, value ...interface{}) (int64, error) {
	var model T
	dbCtx := config.GetDB().WithContext(ctx).Model(&model)
	if businessId != "" {
		dbCtx = dbCtx.Where("business_id = ?", businessId)
	}
	dbCtx = dbCtx.Where(condition, value...)
	var count int64
	if err := dbCtx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
