package models_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/mmdatafocus/bom_backend/bom"
	"github.com/mmdatafocus/bom_backend/config"
	"github.com/mmdatafocus/bom_backend/models"
	"github.com/mmdatafocus/bom_backend/units"
	"github.com/mmdatafocus/bom_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
)

const businessId = "biz-1"

// setupDB points the global DB at a fresh in-memory sqlite database.
func setupDB(t *testing.T) context.Context {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	if _, err := config.ConnectDatabase(sqlite.Open(dsn)); err != nil {
		t.Fatalf("ConnectDatabase: %v", err)
	}
	config.SetRedisClient(nil)
	models.MigrateTable()
	return utils.SetBusinessIdInContext(context.Background(), businessId)
}

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func rawLine(code string, qty float64, unit string) models.NewComponentLine {
	return models.NewComponentLine{Kind: models.ComponentKindRaw, RawItemCode: code, Quantity: dec(qty), Unit: unit}
}

func nestedLine(subjectId string, qty float64, overrides ...models.NewComponentLine) models.NewComponentLine {
	return models.NewComponentLine{Kind: models.ComponentKindComposite, NestedSubjectId: subjectId, Quantity: dec(qty), Overrides: overrides}
}

func mustCreateRawItem(t *testing.T, ctx context.Context, code string, unit string, cost float64, stock float64) *models.RawItem {
	t.Helper()
	item, err := models.CreateRawItem(ctx, &models.NewRawItem{
		Code:         code,
		Name:         strings.ToUpper(code[:1]) + code[1:],
		NativeUnit:   unit,
		UnitCost:     dec(cost),
		CurrentStock: dec(stock),
	})
	if err != nil {
		t.Fatalf("CreateRawItem(%s): %v", code, err)
	}
	return item
}

func mustCreateComposite(t *testing.T, ctx context.Context, subjectId string, lines ...models.NewComponentLine) *models.CompositeItem {
	t.Helper()
	item, err := models.CreateCompositeItem(ctx, &models.NewCompositeItem{
		SubjectId:   subjectId,
		DisplayName: subjectId,
		Components:  lines,
	})
	if err != nil {
		t.Fatalf("CreateCompositeItem(%s): %v", subjectId, err)
	}
	return item
}

// seedBakery stores flour, cheese, dough, cheese-topping, pizza and party-pizza.
func seedBakery(t *testing.T, ctx context.Context) {
	t.Helper()
	mustCreateRawItem(t, ctx, "flour", "gram", 0.002, 10000)
	mustCreateRawItem(t, ctx, "cheese", "g", 0.01, 5000)
	if _, err := models.CreateProductModifier(ctx, &models.NewProductModifier{Name: "extra-cheese"}); err != nil {
		t.Fatalf("CreateProductModifier: %v", err)
	}
	mustCreateComposite(t, ctx, "dough", rawLine("flour", 500, "gram"))
	mustCreateComposite(t, ctx, "cheese-topping", rawLine("cheese", 100, "g"))

	extra := rawLine("cheese", 20, "g")
	extra.ModifierScope = "extra-cheese"
	mustCreateComposite(t, ctx, "pizza", nestedLine("dough", 1), nestedLine("cheese-topping", 1), extra)
	mustCreateComposite(t, ctx, "party-pizza",
		nestedLine("dough", 1),
		nestedLine("cheese-topping", 1, rawLine("cheese", 200, "g")),
	)
}

func newDBResolver(t *testing.T, ctx context.Context) *bom.Resolver {
	t.Helper()
	converter, err := models.LoadUnitConverter(ctx, businessId)
	if err != nil {
		t.Fatalf("LoadUnitConverter: %v", err)
	}
	store := models.NewCatalogStore()
	r, err := bom.NewResolver(bom.ResolverDeps{
		Catalog: models.NewCachedCatalog(store),
		Stock:   store,
		Units:   converter,
	})
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return r
}

var _ bom.UnitConverter = (*units.Converter)(nil)
