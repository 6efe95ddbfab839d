package models_test

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/mmdatafocus/bom_backend/bom"
	"github.com/mmdatafocus/bom_backend/models"
	"github.com/mmdatafocus/bom_backend/utils"
)

func TestCompositeItem_ResolvesFromDatabase(t *testing.T) {
	ctx := setupDB(t)
	seedBakery(t, ctx)
	r := newDBResolver(t, ctx)

	cases := []struct {
		subject  string
		modifier string
		want     float64
	}{
		{"dough", "", 1.0},
		{"pizza", "", 2.0},
		{"pizza", "extra-cheese", 2.2},
		{"party-pizza", "", 3.0},
	}
	for _, tc := range cases {
		res, err := r.ResolveCost(ctx, businessId, tc.subject, tc.modifier)
		if err != nil {
			t.Fatalf("ResolveCost(%s): %v", tc.subject, err)
		}
		if math.Abs(res.UnitCost-tc.want) > 1e-9 {
			t.Fatalf("ResolveCost(%s, %q): expected %v, got %v", tc.subject, tc.modifier, tc.want, res.UnitCost)
		}
	}

	capRes, err := r.Capacity(ctx, businessId, "dough", "")
	if err != nil {
		t.Fatalf("Capacity: %v", err)
	}
	if capRes.Capacity != 20 || !capRes.AllHaveStock {
		t.Fatalf("dough capacity expected 20, got %+v", capRes)
	}
	if _, err := r.ResolveCost(ctx, businessId, "nope", ""); !errors.Is(err, bom.ErrUnknownSubject) {
		t.Fatalf("expected ErrUnknownSubject, got %v", err)
	}
}

func TestCompositeItem_ToMappingKeepsOrderAndOverrides(t *testing.T) {
	ctx := setupDB(t)
	seedBakery(t, ctx)

	item, err := models.GetCompositeItemBySubject(ctx, "party-pizza")
	if err != nil {
		t.Fatalf("GetCompositeItemBySubject: %v", err)
	}
	got := item.ToMapping()
	want := bom.Mapping{
		SubjectId:   "party-pizza",
		DisplayName: "party-pizza",
		Components: []bom.Component{
			bom.CompositeComponent{NestedId: "dough", Quantity: 1, Overrides: []bom.Component{}},
			bom.CompositeComponent{NestedId: "cheese-topping", Quantity: 1, Overrides: []bom.Component{
				bom.RawComponent{RawItemId: "cheese", Quantity: 200, Unit: "g"},
			}},
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ToMapping:\nexpected %+v\ngot      %+v", want, got)
	}
}

func TestCompositeItem_Validation(t *testing.T) {
	ctx := setupDB(t)
	seedBakery(t, ctx)

	rawWithOverride := rawLine("flour", 1, "g")
	rawWithOverride.Overrides = []models.NewComponentLine{rawLine("cheese", 1, "g")}
	unknownScope := rawLine("flour", 1, "g")
	unknownScope.ModifierScope = "no-such-modifier"

	cases := []struct {
		name  string
		input models.NewCompositeItem
	}{
		{"missing subject", models.NewCompositeItem{DisplayName: "x"}},
		{"zero quantity", models.NewCompositeItem{SubjectId: "x", DisplayName: "x", Components: []models.NewComponentLine{rawLine("flour", 0, "g")}}},
		{"quantity below stored scale", models.NewCompositeItem{SubjectId: "x", DisplayName: "x", Components: []models.NewComponentLine{rawLine("flour", 0.00004, "kg")}}},
		{"negative quantity", models.NewCompositeItem{SubjectId: "x", DisplayName: "x", Components: []models.NewComponentLine{nestedLine("dough", -1)}}},
		{"raw line without unit", models.NewCompositeItem{SubjectId: "x", DisplayName: "x", Components: []models.NewComponentLine{rawLine("flour", 1, "")}}},
		{"nested line without id", models.NewCompositeItem{SubjectId: "x", DisplayName: "x", Components: []models.NewComponentLine{nestedLine("", 1)}}},
		{"self reference", models.NewCompositeItem{SubjectId: "x", DisplayName: "x", Components: []models.NewComponentLine{nestedLine("x", 1)}}},
		{"self reference in override", models.NewCompositeItem{SubjectId: "x", DisplayName: "x", Components: []models.NewComponentLine{nestedLine("dough", 1, nestedLine("x", 1))}}},
		{"raw line with overrides", models.NewCompositeItem{SubjectId: "x", DisplayName: "x", Components: []models.NewComponentLine{rawWithOverride}}},
		{"unknown raw item", models.NewCompositeItem{SubjectId: "x", DisplayName: "x", Components: []models.NewComponentLine{rawLine("saffron", 1, "g")}}},
		{"unknown unit", models.NewCompositeItem{SubjectId: "x", DisplayName: "x", Components: []models.NewComponentLine{rawLine("flour", 1, "handful")}}},
		{"unknown modifier", models.NewCompositeItem{SubjectId: "x", DisplayName: "x", Components: []models.NewComponentLine{unknownScope}}},
		{"duplicate subject", models.NewCompositeItem{SubjectId: "dough", DisplayName: "x", Components: []models.NewComponentLine{rawLine("flour", 1, "g")}}},
		{"subject is a raw item", models.NewCompositeItem{SubjectId: "flour", DisplayName: "x", Components: []models.NewComponentLine{rawLine("cheese", 1, "g")}}},
	}
	for _, tc := range cases {
		input := tc.input
		if _, err := models.CreateCompositeItem(ctx, &input); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}

	// smallest quantity the decimal(20,4) column keeps
	if _, err := models.CreateCompositeItem(ctx, &models.NewCompositeItem{
		SubjectId: "pinch", DisplayName: "Pinch", Components: []models.NewComponentLine{rawLine("flour", 0.00006, "kg")},
	}); err != nil {
		t.Fatalf("quantity that rounds to 0.0001 should be accepted: %v", err)
	}

	// nested ids may point at composites that do not exist yet
	if _, err := models.CreateCompositeItem(ctx, &models.NewCompositeItem{
		SubjectId: "combo", DisplayName: "Combo", Components: []models.NewComponentLine{nestedLine("future-item", 1)},
	}); err != nil {
		t.Fatalf("forward reference should be accepted: %v", err)
	}
}

func TestCompositeItem_UpdateReplacesLines(t *testing.T) {
	ctx := setupDB(t)
	seedBakery(t, ctx)
	r := newDBResolver(t, ctx)

	item, err := models.GetCompositeItemBySubject(ctx, "party-pizza")
	if err != nil {
		t.Fatalf("GetCompositeItemBySubject: %v", err)
	}
	updated, err := models.UpdateCompositeItem(ctx, item.ID, &models.NewCompositeItem{
		SubjectId:   "party-pizza",
		DisplayName: "Party Pizza",
		Components: []models.NewComponentLine{
			nestedLine("dough", 2),
			nestedLine("cheese-topping", 1, rawLine("cheese", 0.35, "kg")),
		},
	})
	if err != nil {
		t.Fatalf("UpdateCompositeItem: %v", err)
	}
	if updated.DisplayName != "Party Pizza" || len(updated.Lines) != 3 {
		t.Fatalf("unexpected updated item: %+v", updated)
	}

	res, err := r.ResolveCost(ctx, businessId, "party-pizza", "")
	if err != nil {
		t.Fatalf("ResolveCost: %v", err)
	}
	if math.Abs(res.UnitCost-5.5) > 1e-9 {
		t.Fatalf("updated party-pizza expected 2.0 + 3.5, got %v", res.UnitCost)
	}
	pizza, err := r.ResolveCost(ctx, businessId, "pizza", "")
	if err != nil {
		t.Fatalf("ResolveCost(pizza): %v", err)
	}
	if math.Abs(pizza.UnitCost-2.0) > 1e-9 {
		t.Fatalf("pizza must keep the canonical cheese-topping, got %v", pizza.UnitCost)
	}

	var lineCount int64
	lineCount, err = utils.ResourceCountWhere[models.CompositeLine](ctx, businessId, "composite_item_id = ?", item.ID)
	if err != nil {
		t.Fatalf("ResourceCountWhere: %v", err)
	}
	if lineCount != 3 {
		t.Fatalf("old lines should be gone, found %d lines", lineCount)
	}

	if _, err := models.UpdateCompositeItem(ctx, item.ID, &models.NewCompositeItem{SubjectId: "renamed", DisplayName: "x"}); err == nil {
		t.Fatalf("expected error when changing subject id")
	}
}

func TestCatalogDeleteGuards(t *testing.T) {
	ctx := setupDB(t)
	seedBakery(t, ctx)

	flour, err := utils.FetchModelWhere[models.RawItem](ctx, businessId, "code = ?", "flour")
	if err != nil || flour == nil {
		t.Fatalf("fetch flour: %v %v", flour, err)
	}
	if _, err := models.DeleteRawItem(ctx, flour.ID); err == nil {
		t.Fatalf("flour is used by dough and must not be deleted")
	}

	dough, err := models.GetCompositeItemBySubject(ctx, "dough")
	if err != nil {
		t.Fatalf("GetCompositeItemBySubject: %v", err)
	}
	if _, err := models.DeleteCompositeItem(ctx, dough.ID); err == nil {
		t.Fatalf("dough is nested by pizza and must not be deleted")
	}

	modifiers, err := models.GetProductModifiers(ctx, nil)
	if err != nil || len(modifiers) != 1 {
		t.Fatalf("GetProductModifiers: %v %v", modifiers, err)
	}
	if _, err := models.DeleteProductModifier(ctx, modifiers[0].ID); err == nil {
		t.Fatalf("extra-cheese scopes a pizza line and must not be deleted")
	}

	party, err := models.GetCompositeItemBySubject(ctx, "party-pizza")
	if err != nil {
		t.Fatalf("GetCompositeItemBySubject: %v", err)
	}
	if _, err := models.DeleteCompositeItem(ctx, party.ID); err != nil {
		t.Fatalf("DeleteCompositeItem(party-pizza): %v", err)
	}
	if _, err := models.GetCompositeItemBySubject(ctx, "party-pizza"); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected ErrorRecordNotFound after delete, got %v", err)
	}
	count, err := utils.ResourceCountWhere[models.CompositeLine](ctx, businessId, "composite_item_id = ?", party.ID)
	if err != nil || count != 0 {
		t.Fatalf("lines of deleted item should be gone, count=%d err=%v", count, err)
	}
}

func TestCatalogStore_BatchLookups(t *testing.T) {
	ctx := setupDB(t)
	seedBakery(t, ctx)
	store := models.NewCatalogStore()

	mappings, err := store.LookupMappings(ctx, businessId, []string{"dough", "pizza", "flour", "dough"})
	if err != nil {
		t.Fatalf("LookupMappings: %v", err)
	}
	if len(mappings) != 2 || mappings["dough"] == nil || mappings["pizza"] == nil {
		t.Fatalf("expected dough and pizza mappings, got %v", mappings)
	}
	if len(mappings["pizza"].Components) != 3 {
		t.Fatalf("pizza should have 3 components, got %+v", mappings["pizza"])
	}

	items, err := store.LookupRawItems(ctx, businessId, []string{"flour", "saffron"})
	if err != nil {
		t.Fatalf("LookupRawItems: %v", err)
	}
	want := bom.RawItem{Id: "flour", NativeUnit: "gram", UnitCost: 0.002, CurrentStock: 10000}
	if len(items) != 1 || items["flour"] == nil || *items["flour"] != want {
		t.Fatalf("expected %+v, got %v", want, items)
	}

	other, err := store.LookupMapping(ctx, "biz-2", "dough")
	if err != nil || other != nil {
		t.Fatalf("biz-2 must not see biz-1 mappings, got %v %v", other, err)
	}
}

func TestGetCatalogBusinessIdsCrossesTenants(t *testing.T) {
	ctx := setupDB(t)
	seedBakery(t, ctx)
	other := utils.SetBusinessIdInContext(context.Background(), "biz-2")
	mustCreateRawItem(t, other, "rice", "g", 0.001, 1000)
	mustCreateComposite(t, other, "rice-bowl", rawLine("rice", 150, "g"))

	ids, err := models.GetCatalogBusinessIds(ctx)
	if err != nil {
		t.Fatalf("GetCatalogBusinessIds: %v", err)
	}
	if len(ids) != 2 || ids[0] != businessId || ids[1] != "biz-2" {
		t.Fatalf("business ids = %v, want [%s biz-2]", ids, businessId)
	}
}
