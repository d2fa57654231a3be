package marketplace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want *float64
	}{
		{"$150.00", ptr(150)},
		{"$1,234.56", ptr(1234.56)},
		{"$120.00 to $180.00", ptr(150)},
		{"$120.00to$180.00", ptr(150)},
		{"US $99.99", ptr(99.99)},
		{"$200.00 $210.00", ptr(200)},
		{"Price not available", nil},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			got := ParsePrice(tt.text)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestQualify(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "vintage Gucci", Qualify("Gucci", "vintage"))
	assert.Equal(t, "Vintage Chanel", Qualify("Vintage Chanel", "vintage"))
	assert.Equal(t, "Chanel VINTAGE flap", Qualify("Chanel VINTAGE flap", "vintage"))
	assert.Equal(t, "vintage vintageish tote", Qualify("vintageish tote", "vintage"))
	assert.Equal(t, "Gucci", Qualify("  Gucci ", ""))
}

const listingsPage = `<html><body><ul>
<li class="s-item"><div class="s-item__title">Shop on eBay</div><span class="s-item__price">$20.00</span></li>
<li class="s-item"><div class="s-item__title">Gucci Jackie 1961 vintage</div><span class="s-item__price">$1,250.00</span></li>
<li class="s-item"><div class="s-item__title">Gucci Bamboo top handle</div><span class="s-item__price">$300.00 to $500.00</span></li>
<li class="s-item"><div class="s-item__title">Gucci GG canvas</div><span class="s-item__price">See price</span></li>
<li class="s-item"><div class="s-item__title">Gucci Horsebit</div><span class="s-item__price">$410.00</span></li>
</ul></body></html>`

func TestParseListings(t *testing.T) {
	t.Parallel()

	listings, err := ParseListings([]byte(listingsPage), 20)
	require.NoError(t, err)
	require.Len(t, listings, 4)
	assert.Equal(t, "Gucci Jackie 1961 vintage", listings[0].Title)
	assert.InDelta(t, 1250.0, *listings[0].Price, 1e-9)
	assert.InDelta(t, 400.0, *listings[1].Price, 1e-9)
	assert.Nil(t, listings[2].Price)
}

func TestParseListingsLimit(t *testing.T) {
	t.Parallel()

	listings, err := ParseListings([]byte(listingsPage), 2)
	require.NoError(t, err)
	assert.Len(t, listings, 2)
}

func ptr(v float64) *float64 { return &v }
