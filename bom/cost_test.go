package bom_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/mmdatafocus/bom_backend/bom"
)

func TestResolveCost_Dough(t *testing.T) {
	r := newResolver(t, bakery(), 0)
	res := cost(t, r, "dough", "")
	if !almostEqual(res.UnitCost, 1.0) {
		t.Fatalf("dough cost expected 1.0, got %v", res.UnitCost)
	}
	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.Diagnostics)
	}
}

func TestResolveCost_TwoNodeCycle(t *testing.T) {
	cat := bom.NewMemoryCatalog()
	cat.PutMapping(biz, mapping("A", nested("B", 1)))
	cat.PutMapping(biz, mapping("B", nested("A", 1)))
	r := newResolver(t, cat, 0)

	res := cost(t, r, "A", "")
	if res.UnitCost != 0 {
		t.Fatalf("A<->B cost expected 0, got %v", res.UnitCost)
	}
	if !bom.HasDiagnostic(res.Diagnostics, bom.DiagnosticCycle) {
		t.Fatalf("expected cycle diagnostic, got %v", res.Diagnostics)
	}
}

func TestResolveCost_WeightedCycleCountsEdgeOnce(t *testing.T) {
	cat := bakery()
	cat.PutMapping(biz, mapping("A", raw("flour", 2, "g"), nested("B", 1)))
	cat.PutMapping(biz, mapping("B", raw("flour", 3, "g"), nested("A", 4)))
	r := newResolver(t, cat, 0)

	// A = 2g + 1 x (3g + 4 x 0)
	want := 5 * 0.002
	for i := 0; i < 3; i++ {
		if got := cost(t, r, "A", "").UnitCost; !almostEqual(got, want) {
			t.Fatalf("run %d: expected %v, got %v", i, want, got)
		}
	}
}

func TestResolveCost_OverrideIsolation(t *testing.T) {
	cat := bakery()
	r := newResolver(t, cat, 0)

	if got := cost(t, r, "pizza", "").UnitCost; !almostEqual(got, 2.0) {
		t.Fatalf("pizza expected 1.0 dough + 1.0 cheese, got %v", got)
	}
	if got := cost(t, r, "party-pizza", "").UnitCost; !almostEqual(got, 3.0) {
		t.Fatalf("party-pizza expected 1.0 dough + 2.0 cheese, got %v", got)
	}

	cat.PutMapping(biz, mapping("party-pizza",
		nested("dough", 1),
		nested("cheese-topping", 1, raw("cheese", 350, "gram")),
	))
	if got := cost(t, r, "party-pizza", "").UnitCost; !almostEqual(got, 4.5) {
		t.Fatalf("party-pizza with 350g override expected 4.5, got %v", got)
	}
	if got := cost(t, r, "pizza", "").UnitCost; !almostEqual(got, 2.0) {
		t.Fatalf("pizza must not follow party-pizza's override, got %v", got)
	}
	if got := cost(t, r, "cheese-topping", "").UnitCost; !almostEqual(got, 1.0) {
		t.Fatalf("canonical cheese-topping changed, got %v", got)
	}
}

func TestResolveCost_NestedOverridesScaleByParentQuantity(t *testing.T) {
	cat := bakery()
	cat.PutMapping(biz, mapping("tray",
		nested("party-pizza", 2),
		nested("pizza", 3, nested("dough", 2, raw("flour", 100, "g")), nested("cheese-topping", 1)),
	))
	r := newResolver(t, cat, 0)

	// 2 x 3.0 + 3 x (2 x 0.2 + 1.0)
	if got := cost(t, r, "tray", "").UnitCost; !almostEqual(got, 6+3*1.4) {
		t.Fatalf("tray expected %v, got %v", 6+3*1.4, got)
	}
}

func TestResolveCost_Additivity(t *testing.T) {
	cat := bakery()
	c1 := raw("milk", 0.25, "l")
	c2 := nested("pizza", 2)
	cat.PutMapping(biz, mapping("X", c1, c2))
	cat.PutMapping(biz, mapping("X1", c1))
	cat.PutMapping(biz, mapping("X2", c2))
	r := newResolver(t, cat, 0)

	whole := cost(t, r, "X", "").UnitCost
	sum := cost(t, r, "X1", "").UnitCost + cost(t, r, "X2", "").UnitCost
	if !almostEqual(whole, sum) {
		t.Fatalf("cost(X)=%v but cost(X1)+cost(X2)=%v", whole, sum)
	}
	if !almostEqual(whole, 0.25+4) {
		t.Fatalf("cost(X) expected 4.25, got %v", whole)
	}
}

func TestResolveCost_ModifierScoping(t *testing.T) {
	cat := bakery()
	extra := raw("cheese", 20, "g")
	extra.ModifierScope = "extra-cheese"
	spicy := nested("cheese-topping", 1)
	spicy.ModifierScope = "double-topping"
	cat.PutMapping(biz, mapping("X", raw("flour", 500, "g"), extra, spicy))
	r := newResolver(t, cat, 0)

	cases := []struct {
		modifier string
		want     float64
	}{
		{"", 1.0},
		{"extra-cheese", 1.2},
		{"double-topping", 2.0},
		{"something-else", 1.0},
	}
	for _, tc := range cases {
		if got := cost(t, r, "X", tc.modifier).UnitCost; !almostEqual(got, tc.want) {
			t.Fatalf("modifier %q: expected %v, got %v", tc.modifier, tc.want, got)
		}
	}
}

func TestResolveCost_SiblingReuseIsNotACycle(t *testing.T) {
	cat := bakery()
	cat.PutMapping(biz, mapping("double-dough", nested("dough", 1), nested("dough", 1)))
	cat.PutMapping(biz, mapping("diamond", nested("pizza", 1), nested("party-pizza", 1)))
	r := newResolver(t, cat, 0)

	res := cost(t, r, "double-dough", "")
	if !almostEqual(res.UnitCost, 2.0) || len(res.Diagnostics) != 0 {
		t.Fatalf("double-dough expected 2.0 without diagnostics, got %v %v", res.UnitCost, res.Diagnostics)
	}
	if got := cost(t, r, "diamond", "").UnitCost; !almostEqual(got, 5.0) {
		t.Fatalf("diamond expected 5.0, got %v", got)
	}
}

func TestResolveCost_DataProblemsContributeZero(t *testing.T) {
	cat := bakery()
	cat.PutMapping(biz, mapping("missing-raw", raw("flour", 500, "g"), raw("saffron", 1, "g")))
	cat.PutMapping(biz, mapping("missing-nested", raw("flour", 500, "g"), nested("ghost", 2)))
	cat.PutMapping(biz, mapping("wrong-unit", raw("flour", 500, "g"), raw("flour", 1, "l")))
	cat.PutMapping(biz, mapping("unknown-unit", raw("flour", 500, "g"), raw("flour", 1, "handful")))
	cat.PutMapping(biz, mapping("bad-qty", raw("flour", 500, "g"), raw("flour", -5, "g"), nested("dough", 0)))
	cat.PutMapping(biz, mapping("self-override", nested("dough", 1, nested("self-override", 1), raw("flour", 500, "g"))))
	r := newResolver(t, cat, 0)

	cases := []struct {
		subject string
		want    float64
		kind    bom.DiagnosticKind
	}{
		{"missing-raw", 1.0, bom.DiagnosticMissingRawItem},
		{"missing-nested", 1.0, bom.DiagnosticMissingMapping},
		{"wrong-unit", 1.0, bom.DiagnosticUnitConversion},
		{"unknown-unit", 1.0, bom.DiagnosticUnitConversion},
		{"bad-qty", 1.0, bom.DiagnosticInvalidQty},
		{"self-override", 1.0, bom.DiagnosticCycle},
	}
	for _, tc := range cases {
		res := cost(t, r, tc.subject, "")
		if !almostEqual(res.UnitCost, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.subject, tc.want, res.UnitCost)
		}
		if !bom.HasDiagnostic(res.Diagnostics, tc.kind) {
			t.Fatalf("%s: expected %s diagnostic, got %v", tc.subject, tc.kind, res.Diagnostics)
		}
	}
}

func TestResolveCost_DepthBound(t *testing.T) {
	cat := bakery()
	// level-0 -> level-1 -> ... -> level-9 -> dough
	for i := 0; i < 10; i++ {
		next := fmt.Sprintf("level-%d", i+1)
		if i == 9 {
			next = "dough"
		}
		cat.PutMapping(biz, mapping(fmt.Sprintf("level-%d", i), nested(next, 1)))
	}

	deep := newResolver(t, cat, 0)
	if got := cost(t, deep, "level-0", "").UnitCost; !almostEqual(got, 1.0) {
		t.Fatalf("default depth should resolve 11 levels, got %v", got)
	}

	shallow := newResolver(t, cat, 5)
	res := cost(t, shallow, "level-0", "")
	if res.UnitCost != 0 {
		t.Fatalf("depth 5 should cut the chain, got %v", res.UnitCost)
	}
	if !bom.HasDiagnostic(res.Diagnostics, bom.DiagnosticDepthExceeded) {
		t.Fatalf("expected depth_exceeded diagnostic, got %v", res.Diagnostics)
	}
}

func TestResolveCost_ConcurrentCallsAgree(t *testing.T) {
	cat := bakery()
	cat.PutMapping(biz, mapping("A", raw("flour", 2, "g"), nested("B", 1)))
	cat.PutMapping(biz, mapping("B", raw("flour", 3, "g"), nested("A", 1)))
	r := newResolver(t, cat, 0)

	subjects := map[string]float64{"A": 0.01, "B": 0.01, "pizza": 2.0, "party-pizza": 3.0}
	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 16; i++ {
		for subject, want := range subjects {
			wg.Add(1)
			go func(subject string, want float64) {
				defer wg.Done()
				res, err := r.ResolveCost(t.Context(), biz, subject, "")
				if err != nil {
					errs <- err
					return
				}
				if !almostEqual(res.UnitCost, want) {
					errs <- fmt.Errorf("%s: expected %v, got %v", subject, want, res.UnitCost)
				}
			}(subject, want)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent ResolveCost: %v", err)
	}
}
