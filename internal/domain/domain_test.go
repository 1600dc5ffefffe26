package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContractType(t *testing.T) {
	tests := map[string]ContractType{
		"put":  ContractPut,
		"PUT":  ContractPut,
		"p":    ContractPut,
		"call": ContractCall,
		" C ":  ContractCall,
	}
	for in, expected := range tests {
		got, err := ParseContractType(in)
		require.NoError(t, err, in)
		assert.Equal(t, expected, got, in)
	}
	_, err := ParseContractType("straddle")
	assert.Error(t, err)
}

func TestContractTypeStrategy(t *testing.T) {
	assert.Equal(t, StrategyCashSecuredPut, ContractPut.Strategy())
	assert.Equal(t, StrategyCoveredCall, ContractCall.Strategy())
}

func TestSpreadPercent(t *testing.T) {
	c := OptionContract{Bid: 1.98, Ask: 2.00}
	spread, ok := c.SpreadPercent()
	require.True(t, ok, "two-sided quote")
	assert.InDelta(t, 1.0, spread, 0.01)

	_, ok = OptionContract{Ask: 2}.SpreadPercent()
	assert.False(t, ok, "one-sided quote has no spread")
}

func TestFrequencyWindow(t *testing.T) {
	assert.Zero(t, FrequencyImmediate.Window())
	assert.Equal(t, time.Hour, FrequencyHourly.Window())
	assert.Equal(t, 24*time.Hour, FrequencyDaily.Window())
}

func TestParseFrequency(t *testing.T) {
	f, err := ParseFrequency("")
	require.NoError(t, err)
	assert.Equal(t, FrequencyImmediate, f)

	f, err = ParseFrequency("Daily")
	require.NoError(t, err)
	assert.Equal(t, FrequencyDaily, f)

	_, err = ParseFrequency("weekly")
	assert.Error(t, err)
}
