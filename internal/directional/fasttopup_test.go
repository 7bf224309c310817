package directional

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"polymarket-mm/pkg/types"
)

func baseFastTopUpInputs(now time.Time) fastTopUpInputs {
	return fastTopUpInputs{
		Imbalance:           d(20),
		LeadLeg:             types.Up,
		LeadFillAt:          now.Add(-10 * time.Second),
		LeadFillPrice:       d(0.40),
		LagFillAt:           now.Add(-30 * time.Second),
		LagAsk:              d(0.40),
		LagSpread:           d(0.01),
		LastTopUpAt:         time.Time{},
		Now:                 now,
		MinShares:           d(5),
		CooldownMillis:      5000,
		MinSecondsAfterFill: 2,
		MaxSecondsAfterFill: 30,
		TakerMaxSpread:      d(0.03),
		MinEdge:             d(0.01),
	}
}

func TestFastTopUpTriggerFiresOnQualifyingImbalance(t *testing.T) {
	t.Parallel()
	now := time.Now()
	if !baseFastTopUpInputs(now).trigger() {
		t.Fatal("expected the baseline qualifying inputs to trigger")
	}
}

func TestFastTopUpTriggerRejectsBelowMinShares(t *testing.T) {
	t.Parallel()
	now := time.Now()
	in := baseFastTopUpInputs(now)
	in.Imbalance = d(1)
	if in.trigger() {
		t.Fatal("expected sub-minimum imbalance to reject")
	}
}

func TestFastTopUpTriggerRejectsDuringCooldown(t *testing.T) {
	t.Parallel()
	now := time.Now()
	in := baseFastTopUpInputs(now)
	in.LastTopUpAt = now.Add(-1 * time.Second)
	if in.trigger() {
		t.Fatal("expected an in-progress cooldown to reject")
	}
}

func TestFastTopUpTriggerRejectsOutsideFillAgeWindow(t *testing.T) {
	t.Parallel()
	now := time.Now()

	tooSoon := baseFastTopUpInputs(now)
	tooSoon.LeadFillAt = now.Add(-1 * time.Second)
	if tooSoon.trigger() {
		t.Fatal("expected a too-recent lead fill to reject")
	}

	tooLate := baseFastTopUpInputs(now)
	tooLate.LeadFillAt = now.Add(-60 * time.Second)
	if tooLate.trigger() {
		t.Fatal("expected a too-old lead fill to reject")
	}
}

func TestFastTopUpTriggerRejectsWhenLagFilledMoreRecently(t *testing.T) {
	t.Parallel()
	now := time.Now()
	in := baseFastTopUpInputs(now)
	in.LagFillAt = now.Add(-1 * time.Second) // more recent than LeadFillAt
	if in.trigger() {
		t.Fatal("expected a more-recently-filled lagging leg to reject")
	}
}

func TestFastTopUpTriggerRejectsWideSpread(t *testing.T) {
	t.Parallel()
	now := time.Now()
	in := baseFastTopUpInputs(now)
	in.LagSpread = d(0.10)
	if in.trigger() {
		t.Fatal("expected a spread above TakerMaxSpread to reject")
	}
}

func TestFastTopUpTriggerRejectsInsufficientEdge(t *testing.T) {
	t.Parallel()
	now := time.Now()
	in := baseFastTopUpInputs(now)
	in.LeadFillPrice = d(0.55)
	in.LagAsk = d(0.55) // combined edge = 1 - 1.10 = -0.10
	if in.trigger() {
		t.Fatal("expected insufficient combined edge to reject")
	}
}

func TestFastTopUpSize(t *testing.T) {
	t.Parallel()
	got := fastTopUpSize(d(-40), d(0.5))
	if !got.Equal(d(20)) {
		t.Errorf("expected |imbalance|*fraction = 20, got %v", got)
	}
}

func TestNearEndTopUpTrigger(t *testing.T) {
	t.Parallel()
	if nearEndTopUpTrigger(120, 60, d(10), d(5)) {
		t.Fatal("expected no trigger before the configured seconds-to-end window")
	}
	if !nearEndTopUpTrigger(30, 60, d(10), d(5)) {
		t.Fatal("expected a trigger once within the window with sufficient imbalance")
	}
	if nearEndTopUpTrigger(30, 60, d(2), d(5)) {
		t.Fatal("expected no trigger when imbalance is below the minimum")
	}
}
