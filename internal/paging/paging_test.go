package paging

import "testing"

func TestSliceWindow(t *testing.T) {
	all := []int{1, 2, 3, 4, 5, 6, 7}
	cases := []struct {
		name  string
		q     Query
		want  int
		first int
	}{
		{"default take", Query{}, 7, 1},
		{"first page", Query{Take: 3}, 3, 1},
		{"middle page", Query{Take: 3, Skip: 3}, 3, 4},
		{"partial tail", Query{Take: 3, Skip: 6}, 1, 7},
		{"skip past end", Query{Take: 3, Skip: 20}, 0, 0},
		{"alls ignores window", Query{Take: 1, Skip: 5, Alls: true}, 7, 1},
		{"negative skip", Query{Take: 2, Skip: -4}, 2, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page := Slice(tc.q, all)
			if page.Count != int64(len(all)) {
				t.Fatalf("count=%d, want %d", page.Count, len(all))
			}
			if len(page.Data) != tc.want {
				t.Fatalf("len=%d, want %d", len(page.Data), tc.want)
			}
			if tc.want > 0 && page.Data[0] != tc.first {
				t.Fatalf("first=%d, want %d", page.Data[0], tc.first)
			}
		})
	}
}

func TestMatchesIsCaseInsensitive(t *testing.T) {
	q := Query{Name: "desAY"}
	if !q.Matches("Desayuno escolar") {
		t.Fatal("expected match")
	}
	if q.Matches("Almuerzo") {
		t.Fatal("unexpected match")
	}
	if !(Query{}).Matches("anything") {
		t.Fatal("empty filter must match everything")
	}
}

func TestMatchesTreatsPatternCharactersLiterally(t *testing.T) {
	q := Query{Name: "50%"}
	if !q.Matches("Descuento 50% almuerzo") {
		t.Fatal("expected literal match")
	}
	if q.Matches("Escuela 500") {
		t.Fatal("% must not act as a wildcard")
	}
	if (Query{Name: "a_b"}).Matches("axb") {
		t.Fatal("_ must not act as a wildcard")
	}
}
