package seed

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-storefront-backend/internal/domain"
)

func TestProducts_DefaultCatalog(t *testing.T) {
	ps, err := Products()
	require.NoError(t, err)
	require.Len(t, ps, 25)

	byCat := map[domain.Category]int{}
	ids := map[string]bool{}
	for _, p := range ps {
		byCat[p.Category]++
		assert.False(t, ids[p.ID], "duplicate id %s", p.ID)
		ids[p.ID] = true
		assert.Positive(t, p.Price, p.ID)
		assert.NotEmpty(t, p.Desc, p.ID)
		assert.Equal(t, p.Category.StockBearing(), p.Stock != nil, "stock presence for %s", p.ID)
	}
	assert.Equal(t, 6, byCat[domain.CategoryVPS])
	assert.Equal(t, 14, byCat[domain.CategoryPanel])
	assert.Equal(t, 5, byCat[domain.CategoryOther])
}

func TestProducts_KnownEntries(t *testing.T) {
	ps := MustProducts()
	find := func(id string) domain.Product {
		for _, p := range ps {
			if p.ID == id {
				return p
			}
		}
		t.Fatalf("product %s missing", id)
		return domain.Product{}
	}

	vps1 := find("vps1")
	assert.Equal(t, "BASIC VPS 1", vps1.Name)
	assert.EqualValues(t, 15000, vps1.Price)
	assert.Equal(t, 10, vps1.StockValue())
	assert.True(t, strings.HasPrefix(vps1.Desc, "✅ RAM: 1GB Dedicated\n"))

	std := find("vps4")
	assert.True(t, std.Recommend)
	assert.Equal(t, 20, std.StockValue())

	pt := find("prem5")
	assert.Equal(t, "PT PANEL (PARTNER)", pt.Name)
	assert.Equal(t, 2, pt.StockValue())

	web := find("oth5")
	assert.Nil(t, web.Stock)
	assert.EqualValues(t, 30000, web.Price)
}

func TestProducts_FreshCopies(t *testing.T) {
	a := MustProducts()
	*a[0].Stock = 0
	a[0].Name = "mutated"
	b := MustProducts()
	assert.Equal(t, 10, b[0].StockValue())
	assert.Equal(t, "BASIC VPS 1", b[0].Name)
}

func TestTestimonials_Defaults(t *testing.T) {
	ts, err := Testimonials()
	require.NoError(t, err)
	require.Len(t, ts, 6)
	for _, tm := range ts {
		assert.True(t, tm.Verified, tm.ID)
		assert.Len(t, tm.Date, len("2026-01-01"), tm.ID)
		assert.GreaterOrEqual(t, tm.Rating, 1)
		assert.LessOrEqual(t, tm.Rating, 5)
	}
	assert.Equal(t, "Ahmad Rizky", ts[0].Name)
	assert.Equal(t, "STANDARD VPS 4GB", ts[0].Product)
	assert.Equal(t, 4, ts[3].Rating)
	assert.Equal(t, "2026-01-25", ts[5].Date)
}
