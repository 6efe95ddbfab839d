package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/bom_backend/bom"
	"github.com/mmdatafocus/bom_backend/config"
	"github.com/mmdatafocus/bom_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	CompositeSaleReferenceType  = "composite_sale"
	StockDepletionReferenceType = "stock_depletion"
	compositeSaleHandlerName    = "CompositeSaleWorkflow"
)

// Sale actions, same letters the rest of the platform publishes.
const (
	SaleActionCreate = "C"
	SaleActionDelete = "D"
)

type DepletionDirection string

const (
	DepletionDirectionDeplete DepletionDirection = "deplete"
	DepletionDirectionRestore DepletionDirection = "restore"
)

// CompositeSale is the NewObj payload of a composite_sale message.
type CompositeSale struct {
	SubjectId      string          `json:"subject_id"`
	Quantity       decimal.Decimal `json:"qty"`
	ActiveModifier string          `json:"active_modifier"`
	Reference      string          `json:"reference"`
}

type StockDepletionLine struct {
	RawItemCode string          `json:"raw_item_code"`
	NativeUnit  string          `json:"native_unit"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// StockDepletionRequest asks the stock service to move raw stock for one sale.
// Quantities are in each raw item's native unit, rounded to the stock column scale.
type StockDepletionRequest struct {
	BusinessId     string               `json:"business_id"`
	Reference      string               `json:"reference"`
	SubjectId      string               `json:"subject_id"`
	Quantity       decimal.Decimal      `json:"qty"`
	ActiveModifier string               `json:"active_modifier,omitempty"`
	Direction      DepletionDirection   `json:"direction"`
	Lines          []StockDepletionLine `json:"lines"`
	Diagnostics    []bom.Diagnostic     `json:"diagnostics,omitempty"`
	CorrelationId  string               `json:"correlation_id,omitempty"`
}

// DepletionPublisher sends a depletion request and returns the published message id.
type DepletionPublisher func(ctx context.Context, req *StockDepletionRequest) (string, error)

func ProcessCompositeSaleWorkflow(ctx context.Context, logger *logrus.Logger, resolver *bom.Resolver, msg config.PubSubMessage) (*StockDepletionRequest, error) {
	if msg.BusinessId == "" {
		return nil, bom.ErrMissingBusiness
	}
	if msg.ReferenceType != "" && msg.ReferenceType != CompositeSaleReferenceType {
		return nil, fmt.Errorf("unexpected reference type %q", msg.ReferenceType)
	}
	var direction DepletionDirection
	switch msg.Action {
	case SaleActionCreate, "":
		direction = DepletionDirectionDeplete
	case SaleActionDelete:
		direction = DepletionDirectionRestore
	default:
		return nil, fmt.Errorf("unsupported composite sale action %q", msg.Action)
	}

	var sale CompositeSale
	if err := json.Unmarshal(msg.NewObj, &sale); err != nil {
		config.LogError(logger, "compositeSaleWorkflow.go", "ProcessCompositeSaleWorkflow", "Unmarshal msg.NewObj", string(msg.NewObj), err)
		return nil, err
	}
	if sale.SubjectId == "" {
		return nil, errors.New("subject id is required")
	}
	if !sale.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: %s", bom.ErrInvalidQuantity, sale.Quantity)
	}
	if sale.Reference == "" {
		sale.Reference = msg.ReferenceId
	}

	ctx = utils.SetBusinessIdInContext(ctx, msg.BusinessId)
	if msg.CorrelationId != "" {
		ctx = utils.SetCorrelationIdInContext(ctx, msg.CorrelationId)
	}
	explosion, err := resolver.Explode(ctx, msg.BusinessId, sale.SubjectId, sale.Quantity.InexactFloat64(), sale.ActiveModifier)
	if err != nil {
		config.LogError(logger, "compositeSaleWorkflow.go", "ProcessCompositeSaleWorkflow", "Explode", sale, err)
		return nil, err
	}
	reqs, diags, err := resolver.NativeRequirements(ctx, msg.BusinessId, explosion)
	if err != nil {
		config.LogError(logger, "compositeSaleWorkflow.go", "ProcessCompositeSaleWorkflow", "NativeRequirements", sale, err)
		return nil, err
	}

	req := &StockDepletionRequest{
		BusinessId:     msg.BusinessId,
		Reference:      sale.Reference,
		SubjectId:      sale.SubjectId,
		Quantity:       sale.Quantity,
		ActiveModifier: sale.ActiveModifier,
		Direction:      direction,
		Lines:          make([]StockDepletionLine, 0, len(reqs)),
		Diagnostics:    append(explosion.Diagnostics, diags...),
		CorrelationId:  msg.CorrelationId,
	}
	for _, r := range reqs {
		qty := decimal.NewFromFloat(r.QuantityPerUnit).Round(4)
		if qty.IsZero() {
			continue
		}
		req.Lines = append(req.Lines, StockDepletionLine{
			RawItemCode: r.RawItemId,
			NativeUnit:  r.NativeUnit,
			Quantity:    qty,
		})
	}
	return req, nil
}

// PublishStockDepletion sends req to BOM_DEPLETION_TOPIC.
func PublishStockDepletion(ctx context.Context, req *StockDepletionRequest) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	return config.PublishMessage(ctx, config.BomDepletionTopic(), config.PubSubMessage{
		BusinessId:          req.BusinessId,
		TransactionDateTime: time.Now().UTC(),
		ReferenceId:         req.Reference,
		ReferenceType:       StockDepletionReferenceType,
		Action:              string(req.Direction),
		NewObj:              data,
		CorrelationId:       req.CorrelationId,
	})
}

// HandleCompositeSaleMessage runs the workflow once per pubsub message id and
// publishes the resulting depletion. A redelivered message that already
// succeeded is skipped.
func HandleCompositeSaleMessage(ctx context.Context, logger *logrus.Logger, resolver *bom.Resolver, messageId string, msg config.PubSubMessage, publish DepletionPublisher) error {
	db := config.GetDB().WithContext(ctx)
	skip, err := BeginIdempotency(db, msg.BusinessId, compositeSaleHandlerName, messageId)
	if err != nil {
		return err
	}
	if skip {
		logger.WithFields(logrus.Fields{
			"field":       "CompositeSaleWorkflow",
			"business_id": msg.BusinessId,
			"message_id":  messageId,
		}).Info("duplicate message skipped")
		return nil
	}

	outputRef, err := processAndPublish(ctx, logger, resolver, msg, publish)
	if err != nil {
		if markErr := MarkIdempotencyFailed(db, msg.BusinessId, compositeSaleHandlerName, messageId, err); markErr != nil {
			config.LogError(logger, "compositeSaleWorkflow.go", "HandleCompositeSaleMessage", "MarkIdempotencyFailed", messageId, markErr)
		}
		return err
	}
	return MarkIdempotencySucceeded(db, msg.BusinessId, compositeSaleHandlerName, messageId, outputRef)
}

func processAndPublish(ctx context.Context, logger *logrus.Logger, resolver *bom.Resolver, msg config.PubSubMessage, publish DepletionPublisher) (string, error) {
	req, err := ProcessCompositeSaleWorkflow(ctx, logger, resolver, msg)
	if err != nil {
		return "", err
	}
	if len(req.Diagnostics) > 0 {
		config.LogWarning(logger, "compositeSaleWorkflow.go", "HandleCompositeSaleMessage", "diagnostics", req.Diagnostics, "composite sale resolved with catalog problems")
	}
	if len(req.Lines) == 0 {
		return "", nil
	}
	return publish(ctx, req)
}
