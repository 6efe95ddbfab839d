package reports

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/mmdatafocus/bom_backend/bom"
	"github.com/mmdatafocus/bom_backend/config"
	"github.com/mmdatafocus/bom_backend/middlewares"
	"github.com/mmdatafocus/bom_backend/models"
	"github.com/mmdatafocus/bom_backend/utils"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const defaultReportConcurrency = 8

type CostingRequirement struct {
	RawItemCode     string          `json:"raw_item_code"`
	NativeUnit      string          `json:"native_unit"`
	QuantityPerUnit decimal.Decimal `json:"quantity_per_unit"`
	AvailableStock  decimal.Decimal `json:"available_stock"`
}

type CostingRow struct {
	SubjectId    string               `json:"subject_id"`
	DisplayName  string               `json:"display_name"`
	UnitCost     decimal.Decimal      `json:"unit_cost"`
	Capacity     decimal.Decimal      `json:"capacity"`
	AllHaveStock bool                 `json:"all_have_stock"`
	Requirements []CostingRequirement `json:"requirements"`
	Diagnostics  []string             `json:"diagnostics"`
}

type CostingReportOptions struct {
	ActiveModifier string
	// Concurrency caps in-flight resolutions; zero means 8.
	Concurrency int
}

// GetCostingReport resolves cost and capacity of every composite item of the
// business in ctx. Rows are sorted by subject id.
func GetCostingReport(ctx context.Context, opts CostingReportOptions) ([]*CostingRow, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	started := time.Now()
	defer logSlowReport(ctx, "CostingReport", started, map[string]any{"active_modifier": opts.ActiveModifier})

	cacheKey := costingReportCacheKey(businessId, opts.ActiveModifier)
	var cached []*CostingRow
	if exists, err := cacheGet(cacheKey, &cached); err == nil && exists {
		return cached, nil
	}

	items, err := models.GetCompositeItems(ctx, nil)
	if err != nil {
		return nil, err
	}
	converter, err := models.LoadUnitConverter(ctx, businessId)
	if err != nil {
		return nil, err
	}
	loaders := middlewares.NewLoaders(businessId, models.NewCatalogStore())
	resolver, err := bom.NewResolver(bom.ResolverDeps{
		Catalog: loaders,
		Stock:   loaders,
		Units:   converter,
	})
	if err != nil {
		return nil, err
	}

	subjectIds := make([]string, 0, len(items))
	for _, item := range items {
		subjectIds = append(subjectIds, item.SubjectId)
	}
	if errs := loaders.Prime(ctx, subjectIds); errs != nil {
		for _, err := range errs {
			if err != nil {
				return nil, err
			}
		}
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultReportConcurrency
	}
	rows := make([]*CostingRow, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			row, err := costingRow(gctx, resolver, businessId, item, opts.ActiveModifier)
			if err != nil {
				return err
			}
			rows[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].SubjectId < rows[j].SubjectId })

	if err := cacheSet(cacheKey, rows); err != nil {
		config.LogWarning(config.GetLogger(), "reports", "GetCostingReport", "write report cache", businessId, err.Error())
	}
	return rows, nil
}

func costingRow(ctx context.Context, resolver *bom.Resolver, businessId string, item *models.CompositeItem, activeModifier string) (*CostingRow, error) {
	cost, err := resolver.ResolveCost(ctx, businessId, item.SubjectId, activeModifier)
	if err != nil {
		return nil, err
	}
	capacity, err := resolver.Capacity(ctx, businessId, item.SubjectId, activeModifier)
	if err != nil {
		return nil, err
	}

	row := &CostingRow{
		SubjectId:    item.SubjectId,
		DisplayName:  item.DisplayName,
		UnitCost:     decimal.NewFromFloat(cost.UnitCost).Round(4),
		Capacity:     decimal.NewFromFloat(capacity.Capacity),
		AllHaveStock: capacity.AllHaveStock,
		Requirements: make([]CostingRequirement, 0, len(capacity.Requirements)),
		Diagnostics:  make([]string, 0),
	}
	for _, req := range capacity.Requirements {
		row.Requirements = append(row.Requirements, CostingRequirement{
			RawItemCode:     req.RawItemId,
			NativeUnit:      req.NativeUnit,
			QuantityPerUnit: decimal.NewFromFloat(req.QuantityPerUnit).Round(4),
			AvailableStock:  decimal.NewFromFloat(req.AvailableStock).Round(4),
		})
	}
	seen := make(map[string]bool)
	for _, d := range append(cost.Diagnostics, capacity.Diagnostics...) {
		s := d.String()
		if !seen[s] {
			seen[s] = true
			row.Diagnostics = append(row.Diagnostics, s)
		}
	}
	return row, nil
}
