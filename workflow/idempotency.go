package workflow

import (
	"errors"
	"time"

	"github.com/mmdatafocus/bom_backend/models"
	"gorm.io/gorm"
)

var ErrIdempotencyInProgress = errors.New("idempotency in progress")

// staleStartedAfter is how long a STARTED row blocks redelivery before it is taken over.
const staleStartedAfter = 5 * time.Minute

// BeginIdempotency inserts STARTED. If SUCCEEDED exists, returns (true, nil) meaning "skip safely".
// The connection must have TranslateError enabled so duplicates surface as gorm.ErrDuplicatedKey.
func BeginIdempotency(tx *gorm.DB, businessId, handlerName, messageId string) (skip bool, err error) {
	key := models.IdempotencyKey{
		BusinessId:  businessId,
		HandlerName: handlerName,
		MessageId:   messageId,
		Status:      models.IdempotencyStatusStarted,
	}
	if err := tx.Create(&key).Error; err == nil {
		return false, nil
	} else if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, err
	}

	existing, err := findIdempotencyKey(tx, businessId, handlerName, messageId)
	if err != nil {
		return false, err
	}

	switch existing.Status {
	case models.IdempotencyStatusSucceeded:
		return true, nil
	case models.IdempotencyStatusStarted:
		// another worker may still be on it; let pubsub redeliver later
		if time.Since(existing.UpdatedAt) < staleStartedAfter {
			return false, ErrIdempotencyInProgress
		}
	}
	return false, tx.Model(&models.IdempotencyKey{}).
		Where("id = ?", existing.ID).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusStarted, "last_error": nil, "updated_at": time.Now()}).Error
}

// MarkIdempotencySucceeded records the handler's output, e.g. the published message id.
func MarkIdempotencySucceeded(tx *gorm.DB, businessId, handlerName, messageId string, outputRef string) error {
	var ref *string
	if outputRef != "" {
		ref = &outputRef
	}
	return tx.Model(&models.IdempotencyKey{}).
		Where("business_id = ? AND handler_name = ? AND message_id = ?", businessId, handlerName, messageId).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusSucceeded, "output_ref": ref, "last_error": nil}).Error
}

func MarkIdempotencyFailed(tx *gorm.DB, businessId, handlerName, messageId string, err error) error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return tx.Model(&models.IdempotencyKey{}).
		Where("business_id = ? AND handler_name = ? AND message_id = ?", businessId, handlerName, messageId).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusFailed, "last_error": &msg}).Error
}

func findIdempotencyKey(tx *gorm.DB, businessId, handlerName, messageId string) (*models.IdempotencyKey, error) {
	var existing models.IdempotencyKey
	err := tx.Where("business_id = ? AND handler_name = ? AND message_id = ?", businessId, handlerName, messageId).
		First(&existing).Error
	if err != nil {
		return nil, err
	}
	return &existing, nil
}
