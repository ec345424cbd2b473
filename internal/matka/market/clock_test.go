package market

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/matka-exchange/internal/matka/errs"
)

// fuso fixo para não depender do tzdata da máquina
var ist = time.FixedZone("IST", 5*3600+30*60)

func at(day, clock string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04:05", day+" "+clock, ist)
	if err != nil {
		panic(err)
	}
	return t
}

func TestResolveCutoff_Monotonic(t *testing.T) {
	m := testMarket()
	ref := ReferenceDate(at("2026-10-18", "08:00:00"), ist)

	open, err := ResolveCutoff(m, PhaseOpen, ref, ist)
	require.NoError(t, err)
	cl, err := ResolveCutoff(m, PhaseClose, ref, ist)
	require.NoError(t, err)
	jodi, err := ResolveCutoff(m, PhaseJodi, ref, ist)
	require.NoError(t, err)

	assert.True(t, open.Before(cl))
	assert.True(t, cl.Equal(jodi))
	assert.Equal(t, at("2026-10-18", "10:00:00"), open)
	assert.Equal(t, at("2026-10-18", "10:05:00"), cl)
}

func TestResolveCutoff_OvernightRollsCloseForward(t *testing.T) {
	m := testMarket()
	m.OpenTime = "22:30"
	m.CloseTime = "00:30"
	ref := ReferenceDate(at("2026-10-18", "12:00:00"), ist)

	c, err := ResolveCutoffs(m, ref, ist)
	require.NoError(t, err)
	assert.Equal(t, at("2026-10-18", "22:30:00"), c.Open)
	assert.Equal(t, at("2026-10-19", "00:30:00"), c.Close)
	assert.Equal(t, c.Close, c.Jodi)
}

func TestResolveCutoff_EqualTimesRollForward(t *testing.T) {
	m := testMarket()
	m.CloseTime = m.OpenTime
	ref := ReferenceDate(at("2026-10-18", "00:00:00"), ist)

	cl, err := ResolveCutoff(m, PhaseClose, ref, ist)
	require.NoError(t, err)
	assert.Equal(t, at("2026-10-19", "10:00:00"), cl)
}

func TestResolveCutoff_MonthBoundary(t *testing.T) {
	m := testMarket()
	m.OpenTime = "23:00"
	m.CloseTime = "01:00"
	ref := ReferenceDate(at("2026-10-31", "09:00:00"), ist)

	cl, err := ResolveCutoff(m, PhaseClose, ref, ist)
	require.NoError(t, err)
	assert.Equal(t, at("2026-11-01", "01:00:00"), cl)
}

func TestReferenceDate_UsesReferenceZone(t *testing.T) {
	// 20:00 UTC de 17/10 já é 18/10 em IST
	now := time.Date(2026, 10, 17, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-10-18", DrawDate(now, ist))

	d, err := ParseDrawDate("2026-10-18", ist)
	require.NoError(t, err)
	assert.True(t, d.Equal(ReferenceDate(now, ist)))
}

func TestGate_Cutoff(t *testing.T) {
	m := testMarket()

	tests := []struct {
		name  string
		phase Phase
		now   time.Time
		kind  errs.Kind
	}{
		{"open one second before cutoff", PhaseOpen, at("2026-10-18", "09:59:59"), ""},
		{"open at cutoff", PhaseOpen, at("2026-10-18", "10:00:00"), errs.KindPhaseClosed},
		{"open after cutoff", PhaseOpen, at("2026-10-18", "10:00:01"), errs.KindPhaseClosed},
		{"close between cutoffs", PhaseClose, at("2026-10-18", "10:04:59"), ""},
		{"close at cutoff", PhaseClose, at("2026-10-18", "10:05:00"), errs.KindPhaseClosed},
		{"jodi shares close cutoff", PhaseJodi, at("2026-10-18", "10:04:59"), ""},
		{"jodi at close cutoff", PhaseJodi, at("2026-10-18", "10:05:00"), errs.KindPhaseClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Gate(m, tt.phase, tt.now, ist)
			if tt.kind == "" {
				assert.NoError(t, err)
				assert.True(t, IsPhaseOpenForBetting(m, tt.phase, tt.now, ist))
				return
			}
			assert.Equal(t, tt.kind, errs.KindOf(err))
			assert.False(t, IsPhaseOpenForBetting(m, tt.phase, tt.now, ist))
		})
	}
}

func TestGate_PhaseClosedDetails(t *testing.T) {
	err := Gate(testMarket(), PhaseOpen, at("2026-10-18", "11:00:00"), ist)

	var ae *errs.AdmissionError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, PhaseOpen, ae.Details["phase"])
	assert.Equal(t, "2026-10-18T10:00:00+05:30", ae.Details["cutoff"])
}

func TestGate_FlagsInOrder(t *testing.T) {
	before := at("2026-10-18", "09:00:00")

	m := testMarket()
	m.Deleted = true
	m.AllSuspended = true
	assert.Equal(t, errs.KindMarketNotFound, errs.KindOf(Gate(m, PhaseOpen, before, ist)))
	assert.Equal(t, errs.KindMarketNotFound, errs.KindOf(Gate(nil, PhaseOpen, before, ist)))

	m = testMarket()
	require.NoError(t, m.SetSuspend(SuspendAll, true))
	assert.Equal(t, errs.KindMarketSuspended, errs.KindOf(Gate(m, PhaseOpen, before, ist)))

	m = testMarket()
	m.SetActive(false)
	assert.Equal(t, errs.KindMarketSuspended, errs.KindOf(Gate(m, PhaseClose, before, ist)))

	m = testMarket()
	require.NoError(t, m.SetSuspend(SuspendOpen, true))
	assert.Equal(t, errs.KindPhaseSuspended, errs.KindOf(Gate(m, PhaseOpen, before, ist)))
	assert.NoError(t, Gate(m, PhaseClose, before, ist))
	assert.NoError(t, Gate(m, PhaseJodi, before, ist))

	// suspensão vence o corte
	after := at("2026-10-18", "23:00:00")
	assert.Equal(t, errs.KindPhaseSuspended, errs.KindOf(Gate(m, PhaseOpen, after, ist)))

	m = testMarket()
	require.NoError(t, m.SetSuspend(SuspendClose, true))
	assert.Equal(t, errs.KindPhaseSuspended, errs.KindOf(Gate(m, PhaseJodi, before, ist)))
}

func TestGate_InvalidScheduleFailsClosed(t *testing.T) {
	m := testMarket()
	m.CloseTime = "late"

	err := Gate(m, PhaseClose, at("2026-10-18", "09:00:00"), ist)
	assert.Equal(t, errs.KindPhaseClosed, errs.KindOf(err))
}

func TestCheckDeclarable(t *testing.T) {
	m := testMarket()
	tests := map[string]struct {
		phase   Phase
		date    string
		now     time.Time
		wantErr bool
	}{
		"open before cutoff": {PhaseOpen, "2026-10-18", at("2026-10-18", "09:00:00"), true},
		"open at cutoff":     {PhaseOpen, "2026-10-18", at("2026-10-18", "10:00:00"), false},
		"close still open":   {PhaseClose, "2026-10-18", at("2026-10-18", "10:01:00"), true},
		"close after cutoff": {PhaseClose, "2026-10-18", at("2026-10-18", "10:05:00"), false},
		"future draw date":   {PhaseOpen, "2026-10-19", at("2026-10-18", "23:00:00"), true},
		"past draw date":     {PhaseClose, "2026-10-17", at("2026-10-18", "08:00:00"), false},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			err := CheckDeclarable(m, tc.phase, tc.date, tc.now, ist)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrPhaseOpen)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCheckDeclarable_Overnight(t *testing.T) {
	m := testMarket()
	m.OpenTime = "22:00"
	m.CloseTime = "02:00"

	// CLOSE do dia 18 fecha às 02:00 do dia 19
	assert.ErrorIs(t, CheckDeclarable(m, PhaseClose, "2026-10-18", at("2026-10-18", "23:30:00"), ist), ErrPhaseOpen)
	assert.ErrorIs(t, CheckDeclarable(m, PhaseClose, "2026-10-18", at("2026-10-19", "01:59:00"), ist), ErrPhaseOpen)
	assert.NoError(t, CheckDeclarable(m, PhaseClose, "2026-10-18", at("2026-10-19", "02:05:00"), ist))
}

func TestDeclarationDate(t *testing.T) {
	m := testMarket()
	d, err := DeclarationDate(m, PhaseOpen, at("2026-10-18", "10:30:00"), ist)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-18", d)

	m.OpenTime = "22:00"
	m.CloseTime = "02:00"
	d, err = DeclarationDate(m, PhaseClose, at("2026-10-19", "02:05:00"), ist)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-18", d)

	d, err = DeclarationDate(m, PhaseOpen, at("2026-10-19", "22:10:00"), ist)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-19", d)
}
