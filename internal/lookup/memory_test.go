package lookup

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"nutriadmin.org/internal/paging"
)

func seeded(t *testing.T, def Definition, n int) *MemoryStore {
	t.Helper()
	s := NewMemoryStore(def)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("Tipo %02d", i)
		if i%3 == 0 {
			name = fmt.Sprintf("Desayuno %02d", i)
		}
		if _, err := s.Insert(context.Background(), Item{Name: name, IsActive: true}); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	return s
}

func TestGetAllPaginationContract(t *testing.T) {
	s := seeded(t, MealType, 20)
	ctx := context.Background()

	// 20 rows, every third one (0,3,...,18) matches "desayuno": 7 matches.
	const matching = 7
	for take := 1; take <= 10; take++ {
		for skip := 0; skip <= 9; skip++ {
			page, err := s.GetAll(ctx, paging.Query{Take: take, Skip: skip, Name: "DESAYUNO"})
			if err != nil {
				t.Fatalf("GetAll: %v", err)
			}
			if page.Count != matching {
				t.Fatalf("take=%d skip=%d: count=%d, want %d", take, skip, page.Count, matching)
			}
			want := min(take, max(matching-skip, 0))
			if len(page.Data) != want {
				t.Fatalf("take=%d skip=%d: len=%d, want %d", take, skip, len(page.Data), want)
			}
		}
	}
}

func TestGetAllDefaultsAndAlls(t *testing.T) {
	s := seeded(t, MealType, 25)
	ctx := context.Background()

	page, err := s.GetAll(ctx, paging.Query{Take: 0})
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(page.Data) != paging.DefaultTake || page.Count != 25 {
		t.Fatalf("unexpected default page: len=%d count=%d", len(page.Data), page.Count)
	}

	page, err = s.GetAll(ctx, paging.Query{Take: 2, Skip: 3, Alls: true})
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(page.Data) != 25 {
		t.Fatalf("alls should return every match, got %d", len(page.Data))
	}
}

func TestUpdateDisplayOrder(t *testing.T) {
	s := seeded(t, CenterType, 3)
	ctx := context.Background()

	ok, err := s.UpdateDisplayOrder(ctx, 404, 5)
	if err != nil || ok {
		t.Fatalf("missing id: ok=%v err=%v", ok, err)
	}

	ok, err = s.UpdateDisplayOrder(ctx, 2, 42)
	if err != nil || !ok {
		t.Fatalf("existing id: ok=%v err=%v", ok, err)
	}
	item, err := s.GetByID(ctx, 2)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if item.DisplayOrder != 42 {
		t.Fatalf("display order=%d, want 42", item.DisplayOrder)
	}
	if item.UpdatedAt == nil {
		t.Fatal("expected updated_at to be set")
	}
}

func TestUpdateDisplayOrderNotOrderable(t *testing.T) {
	s := seeded(t, Permission, 1)
	if _, err := s.UpdateDisplayOrder(context.Background(), 1, 3); !errors.Is(err, ErrNotOrderable) {
		t.Fatalf("expected ErrNotOrderable, got %v", err)
	}
}

func TestCRUDRoundTrip(t *testing.T) {
	s := NewMemoryStore(KitchenType)
	ctx := context.Background()

	if _, err := s.Insert(ctx, Item{Name: "  "}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	id, err := s.Insert(ctx, Item{Name: "Cocina central", IsActive: true})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	ok, err := s.Update(ctx, Item{ID: id, Name: "Cocina satélite", IsActive: false})
	if err != nil || !ok {
		t.Fatalf("Update: ok=%v err=%v", ok, err)
	}
	got, _ := s.GetByID(ctx, id)
	if got.Name != "Cocina satélite" || got.IsActive {
		t.Fatalf("unexpected item after update: %+v", got)
	}
	ok, err = s.Delete(ctx, id)
	if err != nil || !ok {
		t.Fatalf("Delete: ok=%v err=%v", ok, err)
	}
	if _, err := s.GetByID(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	ok, _ = s.Delete(ctx, id)
	if ok {
		t.Fatal("second delete should report false")
	}
}

func TestDefinitionsAreUnique(t *testing.T) {
	if len(All) != 17 {
		t.Fatalf("expected 17 lookups, got %d", len(All))
	}
	keys := map[string]bool{}
	routes := map[string]bool{}
	for _, d := range All {
		if keys[d.Key] || routes[d.Route] {
			t.Fatalf("duplicate definition %s/%s", d.Key, d.Route)
		}
		keys[d.Key] = true
		routes[d.Route] = true
	}
	if d, ok := ByKey("agency_status"); !ok || d.PluralRoute() != "agency-statuses" {
		t.Fatalf("unexpected agency_status definition: %+v", d)
	}
	if MealType.PluralRoute() != "meal-types" {
		t.Fatalf("unexpected plural: %s", MealType.PluralRoute())
	}
}
