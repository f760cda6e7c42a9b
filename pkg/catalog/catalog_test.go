package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrichain/advisor/common/model"
)

func TestRulesCatalogIsWellFormed(t *testing.T) {
	rules, err := Rules()
	require.NoError(t, err)

	for crop, list := range rules {
		require.NotEmpty(t, list, crop)
		for _, r := range list {
			assert.NotEmpty(t, r.ID)
			assert.True(t, r.TempRange.Valid(), r.ID)
			assert.True(t, r.HumidityRange.Valid(), r.ID)
			assert.True(t, r.Severity.Known(), r.ID)
			assert.Positive(t, r.SpoilageTimeHours, r.ID)
			assert.InDelta(t, 0.5, r.Source.Credibility, 0.5, r.ID)
		}
	}

	crops, err := Crops()
	require.NoError(t, err)
	assert.Equal(t, []string{"onion", "tomato"}, crops)
}

func TestStaticProviderFetch(t *testing.T) {
	p, err := NewStaticProvider("Agmarknet")
	require.NoError(t, err)
	assert.Equal(t, "Agmarknet", p.Name())

	markets, err := p.Fetch(context.Background(), "Tomato")
	require.NoError(t, err)
	require.Len(t, markets, 3)

	byName := make(map[string]model.Market, len(markets))
	for _, m := range markets {
		byName[m.Name] = m
		assert.Equal(t, "Agmarknet", m.Source)
		assert.False(t, m.LastUpdated.IsZero())
	}
	assert.Equal(t, 25.0, byName["Nagpur Mandi"].PricePerKg)
	assert.Equal(t, 30.0, byName["Mumbai APMC"].PricePerKg)
	assert.Equal(t, 28.0, byName["Pune Market Yard"].PricePerKg)

	none, err := p.Fetch(context.Background(), "wheat")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStaticProviderUnknownSource(t *testing.T) {
	_, err := NewStaticProvider("eNAM")
	assert.Error(t, err)
}
