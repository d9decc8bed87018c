package table

import (
	"fmt"
	"math/rand"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Billy-Davies-2/seal-tracker/internal/models"
)

func TestScenarios(t *testing.T) {
	tests := []struct {
		name    string
		records []models.PlayerRecord
		view    func(*models.ViewState)
		want    []string
	}{
		{
			name: "search mes",
			records: []models.PlayerRecord{
				player("lionel-messi", "Lionel Messi", 200, "12", ""),
				player("kylian-mbappe", "Kylian Mbappé", 200, "10", ""),
				player("neymar", "Neymar", 200, "8", ""),
			},
			view: func(vs *models.ViewState) { vs.Search = "mes" },
			want: []string{"lionel-messi"},
		},
		{
			name: "ratio ascending",
			records: []models.PlayerRecord{
				player("p1", "P1", 200, "10", ""),
				player("p2", "P2", 200, "20", ""),
				player("p3", "P3", 200, "4", ""),
			},
			view: func(vs *models.ViewState) { vs.SortMode = models.SortByRatio },
			want: []string{"p3", "p1", "p2"},
		},
		{
			name: "price ascending with a missing price",
			records: []models.PlayerRecord{
				player("p1", "P1", 200, "10", ""),
				player("p2", "P2", 200, "", ""),
				player("p3", "P3", 200, "5", ""),
			},
			want: []string{"p3", "p1", "p2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := &models.Dataset{TierGroups: map[int][]models.PlayerRecord{200: tt.records}}
			vs := models.DefaultViewState()
			if tt.view != nil {
				tt.view(&vs)
			}
			got := Recompute(ds, vs)
			if !reflect.DeepEqual(slugs(got.Items), tt.want) {
				t.Errorf("expected %v, got %v", tt.want, slugs(got.Items))
			}
		})
	}
}

var randomTiers = []*int{nil, intp(0), intp(5), intp(50), intp(200)}

func randomPrice(r *rand.Rand) decimal.NullDecimal {
	switch r.Intn(5) {
	case 0:
		return decimal.NullDecimal{}
	case 1:
		return decimal.NewNullDecimal(decimal.Zero)
	default:
		// few distinct values so ties are common
		return decimal.NewNullDecimal(decimal.New(int64(r.Intn(20)+1)*25, -2))
	}
}

// randomDataset builds a dataset with unique slugs, shared prices and
// missing tiers and prices
func randomDataset(r *rand.Rand) *models.Dataset {
	ds := &models.Dataset{TierGroups: map[int][]models.PlayerRecord{}}
	n := r.Intn(80)
	for i := 0; i < n; i++ {
		group := []int{5, 50, 200}[r.Intn(3)]
		rec := models.PlayerRecord{
			Slug:   fmt.Sprintf("p%03d", i),
			Name:   fmt.Sprintf("Player %d", i),
			Tier:   randomTiers[r.Intn(len(randomTiers))],
			Prices: map[models.CardType]decimal.NullDecimal{},
		}
		for _, ct := range models.CardTypes {
			rec.Prices[ct] = randomPrice(r)
		}
		rec.Changed = r.Intn(3) == 0
		ds.TierGroups[group] = append(ds.TierGroups[group], rec)
	}
	return ds
}

func eagerCopy(ds *models.Dataset) *models.Dataset {
	out := &models.Dataset{TierGroups: make(map[int][]models.PlayerRecord, len(ds.TierGroups))}
	for tier, group := range ds.TierGroups {
		copied := make([]models.PlayerRecord, len(group))
		for i, rec := range group {
			copied[i] = WithRatios(rec)
		}
		out.TierGroups[tier] = copied
	}
	return out
}

func randomView(r *rand.Rand) models.ViewState {
	vs := models.DefaultViewState()
	if r.Intn(2) == 0 {
		vs.Tier = models.AllTiers()
	} else {
		vs.Tier = models.SingleTier([]int{5, 50, 200, 1000}[r.Intn(4)])
	}
	vs.ChangedOnly = r.Intn(4) == 0
	vs.CardType = models.CardTypes[r.Intn(len(models.CardTypes))]
	vs.SortMode = []models.SortMode{models.SortByPrice, models.SortByRatio}[r.Intn(2)]
	vs.Direction = []models.Direction{models.Ascending, models.Descending}[r.Intn(2)]
	vs.PageSize = r.Intn(12) + 1
	vs.Page = r.Intn(10) + 1
	return vs
}

func TestEngineProperties(t *testing.T) {
	for seed := int64(1); seed <= 300; seed++ {
		r := rand.New(rand.NewSource(seed))
		lazy := randomDataset(r)
		eager := eagerCopy(lazy)
		vs := randomView(r)

		// eager and lazy ratios give the same page
		a, b := Recompute(lazy, vs), Recompute(eager, vs)
		if !reflect.DeepEqual(slugs(a.Items), slugs(b.Items)) {
			t.Fatalf("seed %d: lazy %v and eager %v differ", seed, slugs(a.Items), slugs(b.Items))
		}
		for i := range a.Items {
			for _, ct := range models.CardTypes {
				ra, rb := a.Items[i].Ratios[ct], b.Items[i].Ratios[ct]
				if ra.Valid != rb.Valid || (ra.Valid && !ra.Decimal.Equal(rb.Decimal)) {
					t.Fatalf("seed %d: %s %s ratio %v vs %v", seed, a.Items[i].Slug, ct, ra, rb)
				}
			}
		}

		filtered := Filter(lazy, vs)
		key := KeyFor(vs)
		sorted := Sort(filtered, key)

		if again := Sort(sorted, key); !reflect.DeepEqual(slugs(again), slugs(sorted)) {
			t.Fatalf("seed %d: sort is not idempotent", seed)
		}

		position := make(map[string]int, len(filtered))
		for i, rec := range filtered {
			position[rec.Slug] = i
		}
		seenNull := false
		for i, rec := range sorted {
			v := key.Value(rec)
			if seenNull && v.Valid {
				t.Fatalf("seed %d: value after a null at %d", seed, i)
			}
			if !v.Valid {
				seenNull = true
			}
			if i == 0 {
				continue
			}
			prev := key.Value(sorted[i-1])
			switch c := key.Compare(prev, v); {
			case c > 0:
				t.Fatalf("seed %d: %v before %v", seed, prev, v)
			case c == 0 && position[sorted[i-1].Slug] > position[rec.Slug]:
				t.Fatalf("seed %d: ties %s and %s swapped", seed, sorted[i-1].Slug, rec.Slug)
			}
			if vs.SortMode == models.SortByRatio && prev.Valid && v.Valid && prev.Decimal.GreaterThan(v.Decimal) {
				t.Fatalf("seed %d: ratio mode must be ascending", seed)
			}
		}

		// page lengths add up to the filtered count
		n, size := len(sorted), vs.PageSize
		total := TotalPages(n, size)
		if want := (n + size - 1) / size; total != want {
			t.Fatalf("seed %d: TotalPages(%d, %d) = %d, want %d", seed, n, size, total, want)
		}
		count := 0
		for p := 1; p <= total; p++ {
			page := Paginate(sorted, p, size)
			want := size
			if rest := n - (p-1)*size; rest < size {
				want = rest
			}
			if len(page.Items) != want {
				t.Fatalf("seed %d: page %d has %d items, want %d", seed, p, len(page.Items), want)
			}
			count += len(page.Items)
		}
		if count != n {
			t.Fatalf("seed %d: pages hold %d items, want %d", seed, count, n)
		}
	}
}
