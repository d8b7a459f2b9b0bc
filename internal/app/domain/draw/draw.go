// Package draw defines the lottery draw domain model.
package draw

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a draw.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusOpen      Status = "open"
	StatusClosed    Status = "closed"
	StatusSettled   Status = "settled"
)

// Slot identifies one of the three fixed daily draw times.
type Slot string

const (
	SlotTwoPM  Slot = "twoPM"
	SlotFivePM Slot = "fivePM"
	SlotNinePM Slot = "ninePM"
)

// Slots lists the daily slots in draw order.
var Slots = []Slot{SlotTwoPM, SlotFivePM, SlotNinePM}

// slotHours maps each slot to its local draw hour. Betting cuts off five
// minutes before the draw.
var slotHours = map[Slot]int{
	SlotTwoPM:  14,
	SlotFivePM: 17,
	SlotNinePM: 21,
}

// CutoffLead is how long before the draw time betting closes.
const CutoffLead = 5 * time.Minute

// Draw represents one scheduled lottery draw. WinningNumber stays empty
// until the result is published; once set it is immutable.
type Draw struct {
	ID            string    `json:"id"`
	DrawDate      time.Time `json:"draw_date"`
	Slot          Slot      `json:"draw_time"`
	WinningNumber string    `json:"winning_number,omitempty"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ParseSlot validates a slot name.
func ParseSlot(raw string) (Slot, error) {
	slot := Slot(strings.TrimSpace(raw))
	if _, ok := slotHours[slot]; !ok {
		return "", fmt.Errorf("unknown draw slot %q", raw)
	}
	return slot, nil
}

// DrawTime returns the wall-clock draw time for a slot on the given date.
func DrawTime(date time.Time, slot Slot, loc *time.Location) time.Time {
	hour := slotHours[slot]
	return time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, loc)
}

// CutoffTime returns the betting cutoff for a slot on the given date.
func CutoffTime(date time.Time, slot Slot, loc *time.Location) time.Time {
	return DrawTime(date, slot, loc).Add(-CutoffLead)
}

// CanTransition reports whether a draw status change is legal.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusScheduled:
		return to == StatusOpen
	case StatusOpen:
		return to == StatusClosed
	case StatusClosed:
		return to == StatusSettled
	default:
		return false
	}
}

// ResultPublished reports whether a winning number has been recorded.
func (d Draw) ResultPublished() bool { return d.WinningNumber != "" }
