package draw

import (
	"testing"
	"time"
)

func TestParseSlot(t *testing.T) {
	for _, slot := range Slots {
		got, err := ParseSlot(string(slot))
		if err != nil || got != slot {
			t.Errorf("ParseSlot(%q) = %v, %v", slot, got, err)
		}
	}
	if _, err := ParseSlot("elevenPM"); err == nil {
		t.Error("unknown slot should be rejected")
	}
	if got, err := ParseSlot(" ninePM "); err != nil || got != SlotNinePM {
		t.Errorf("ParseSlot with whitespace = %v, %v", got, err)
	}
}

func TestDrawAndCutoffTimes(t *testing.T) {
	loc := time.FixedZone("PHT", 8*3600)
	date := time.Date(2026, 8, 27, 0, 0, 0, 0, loc)

	tests := []struct {
		slot Slot
		hour int
	}{
		{SlotTwoPM, 14},
		{SlotFivePM, 17},
		{SlotNinePM, 21},
	}
	for _, tt := range tests {
		dt := DrawTime(date, tt.slot, loc)
		if dt.Hour() != tt.hour || dt.Minute() != 0 {
			t.Errorf("DrawTime(%s) = %v, want hour %d", tt.slot, dt, tt.hour)
		}
		cutoff := CutoffTime(date, tt.slot, loc)
		if want := dt.Add(-CutoffLead); !cutoff.Equal(want) {
			t.Errorf("CutoffTime(%s) = %v, want %v", tt.slot, cutoff, want)
		}
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusScheduled, StatusOpen, true},
		{StatusScheduled, StatusClosed, false},
		{StatusOpen, StatusClosed, true},
		{StatusOpen, StatusSettled, false},
		{StatusClosed, StatusSettled, true},
		{StatusClosed, StatusOpen, false},
		{StatusSettled, StatusOpen, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.ok {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}
}
