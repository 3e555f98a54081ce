package entities

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testNow = time.Date(2026, 10, 14, 15, 30, 0, 0, time.UTC)

func TestBucketKeys(t *testing.T) {
	tests := []struct {
		name  string
		at    time.Time
		day   string
		week  string
		month string
	}{
		{"mid week", testNow, "2026-10-14", "2026-W42", "2026-10"},
		{"monday starts week", time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), "2026-10-12", "2026-W42", "2026-10"},
		{"sunday ends week", time.Date(2026, 10, 18, 23, 59, 0, 0, time.UTC), "2026-10-18", "2026-W42", "2026-10"},
		{"iso year differs from calendar year", time.Date(2027, 1, 1, 12, 0, 0, 0, time.UTC), "2027-01-01", "2026-W53", "2027-01"},
		{"late december in next iso year", time.Date(2024, 12, 30, 12, 0, 0, 0, time.UTC), "2024-12-30", "2025-W01", "2024-12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BucketsFor(tt.at, time.UTC)
			assert.Equal(t, []BucketRef{
				{Type: BucketDay, Key: tt.day},
				{Type: BucketWeek, Key: tt.week},
				{Type: BucketMonth, Key: tt.month},
			}, got)
		})
	}
}

func TestBucketsFor_UsesLocation(t *testing.T) {
	saoPaulo := time.FixedZone("BRT", -3*60*60)
	// 01:00 UTC on the 1st is still the previous day and month in UTC-3
	at := time.Date(2026, 11, 1, 1, 0, 0, 0, time.UTC)

	got := BucketsFor(at, saoPaulo)
	assert.Equal(t, "2026-10-31", got[0].Key)
	assert.Equal(t, "2026-10", got[2].Key)
}

func TestPeriodStarts(t *testing.T) {
	assert.Equal(t, time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC), StartOfDay(testNow))
	assert.Equal(t, time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), StartOfISOWeek(testNow))
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), StartOfMonth(testNow))

	sunday := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), StartOfISOWeek(sunday))
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw   string
		want  Cents
		valid bool
	}{
		{`300`, 30000, true},
		{`99.99`, 9999, true},
		{`-12.5`, -1250, true},
		{`"300"`, 30000, true},
		{`"300.50"`, 30050, true},
		{`"300,50"`, 30050, true},
		{`"1.234,56"`, 123456, true},
		{`"1,234.56"`, 123456, true},
		{`"1.234.567"`, 123456700, true},
		{`"12,3.4,5"`, 0, false},
		{`1e17`, 0, false},
		{`-1e17`, 0, false},
		{`"92233720368547758"`, 0, false},
		{`1e15`, 100000000000000000, true},
		{`"abc"`, 0, false},
		{`"NaN"`, 0, false},
		{`"Inf"`, 0, false},
		{`null`, 0, false},
		{`true`, 0, false},
		{`{"v":1}`, 0, false},
		{``, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseAmount(json.RawMessage(tt.raw))
			assert.Equal(t, tt.valid, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCounterSet_FromRows(t *testing.T) {
	rows := []CounterRow{
		{BucketType: BucketDay, BucketKey: "2026-10-13", Name: CounterAtendimentosIniciados, Value: 3},
		{BucketType: BucketDay, BucketKey: "2026-10-14", Name: CounterAtendimentosIniciados, Value: 2},
		{BucketType: BucketDay, BucketKey: "2026-10-14", Name: CounterFaturamento, Value: 30000},
		{BucketType: BucketDay, BucketKey: "2026-10-14", Name: CounterGastos, Value: 10000},
		{BucketType: BucketDay, BucketKey: "2026-10-14", Name: CounterLucro, Value: 20000},
		{BucketType: BucketDay, BucketKey: "2026-10-14", Name: CounterName("legacy"), Value: 99},
	}

	set := CounterSetFromRows(rows)
	assert.Equal(t, int64(5), set.AtendimentosIniciados)
	assert.Equal(t, int64(5), set.Stage(CounterAtendimentosIniciados))
	assert.Equal(t, Cents(30000), set.Faturamento)
	assert.Equal(t, set.Faturamento-set.Gastos, set.Lucro)
	assert.Equal(t, 300.0, set.Faturamento.Float())
}
