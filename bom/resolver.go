package bom

import (
	"context"
	"fmt"

	"github.com/mmdatafocus/bom_backend/config"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/mmdatafocus/bom_backend/bom")

type ResolverDeps struct {
	Catalog CatalogStore
	Stock   StockStore
	Units   UnitConverter
	Logger  *logrus.Logger
	// MaxDepth bounds composite nesting; zero reads BOM_MAX_DEPTH.
	MaxDepth int
}

// Resolver computes cost, explosion and capacity of composite items. It holds
// no per-call state and is safe for concurrent use.
type Resolver struct {
	catalog  CatalogStore
	stock    StockStore
	units    UnitConverter
	logger   *logrus.Logger
	maxDepth int
}

func NewResolver(deps ResolverDeps) (*Resolver, error) {
	if deps.Catalog == nil {
		return nil, fmt.Errorf("bom: catalog store is required")
	}
	if deps.Stock == nil {
		return nil, fmt.Errorf("bom: stock store is required")
	}
	if deps.Units == nil {
		return nil, fmt.Errorf("bom: unit converter is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = config.GetLogger()
	}
	maxDepth := deps.MaxDepth
	if maxDepth <= 0 {
		maxDepth = config.BomMaxDepth()
	}
	return &Resolver{
		catalog:  deps.Catalog,
		stock:    deps.Stock,
		units:    deps.Units,
		logger:   logger,
		maxDepth: maxDepth,
	}, nil
}

func (r *Resolver) startSpan(ctx context.Context, name string, businessId string, subjectId string, activeModifier string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("bom.business_id", businessId),
		attribute.String("bom.subject_id", subjectId),
		attribute.String("bom.active_modifier", activeModifier),
	))
}

func endSpan(span trace.Span, diags []Diagnostic, err error) {
	span.SetAttributes(attribute.Int("bom.diagnostics", len(diags)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// entry resolves the top-level subject. It returns the subject's mapping, or
// nil when the subject is a raw item. Anything else is ErrUnknownSubject.
func (r *Resolver) entry(ctx context.Context, businessId string, subjectId string) (*Mapping, error) {
	if businessId == "" {
		return nil, ErrMissingBusiness
	}
	mapping, err := r.catalog.LookupMapping(ctx, businessId, subjectId)
	if err != nil {
		return nil, fmt.Errorf("lookup mapping %q: %w", subjectId, err)
	}
	if mapping != nil {
		return mapping, nil
	}
	item, err := r.stock.LookupRawItem(ctx, businessId, subjectId)
	if err != nil {
		return nil, fmt.Errorf("lookup raw item %q: %w", subjectId, err)
	}
	if item == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSubject, subjectId)
	}
	return nil, nil
}

func (r *Resolver) logDiagnostics(funcName string, businessId string, subjectId string, diags []Diagnostic) {
	if len(diags) == 0 || !r.logger.IsLevelEnabled(logrus.WarnLevel) {
		return
	}
	for _, d := range diags {
		config.LogWarning(r.logger, "bom", funcName, string(d.Kind), map[string]interface{}{
			"business_id": businessId,
			"subject_id":  subjectId,
			"ref":         d.Ref,
			"path":        d.Path,
		}, d.Message)
	}
}
