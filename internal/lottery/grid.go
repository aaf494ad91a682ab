// Package lottery implements the raffle ticket logic: the number grid,
// buyer selections, the purchase reservation protocol, and the draw.
package lottery

import "github.com/pukatu/pukatu-backend/internal/models"

// NumberState is the display state of one grid number.
type NumberState string

const (
	NumberSold      NumberState = "sold"
	NumberSelected  NumberState = "selected"
	NumberAvailable NumberState = "available"
)

// Classify returns the state of number n. Sold dominates: a number attached
// to a non-rejected purchase is never reported as selected, even if it sits
// in a stale local selection.
func Classify(n int, sold models.NumberList, selection *Selection) NumberState {
	if sold.Contains(n) {
		return NumberSold
	}
	if selection != nil && selection.Contains(n) {
		return NumberSelected
	}
	return NumberAvailable
}

// Grid classifies every number 1..totalNumbers.
func Grid(totalNumbers int, sold models.NumberList, selection *Selection) []NumberState {
	states := make([]NumberState, totalNumbers)
	for i := range states {
		states[i] = Classify(i+1, sold, selection)
	}
	return states
}

// Selection is the set of numbers a buyer intends to purchase for one
// raffle. It preserves insertion order so the confirmation message lists
// numbers the way the buyer picked them.
type Selection struct {
	numbers []int
}

func NewSelection(numbers ...int) *Selection {
	s := &Selection{}
	for _, n := range numbers {
		s.add(n)
	}
	return s
}

func (s *Selection) add(n int) {
	if !s.Contains(n) {
		s.numbers = append(s.numbers, n)
	}
}

func (s *Selection) remove(n int) {
	for i, v := range s.numbers {
		if v == n {
			s.numbers = append(s.numbers[:i], s.numbers[i+1:]...)
			return
		}
	}
}

// Toggle adds n if absent, removes it if present, and silently refuses sold
// numbers. It reports whether the selection changed.
func (s *Selection) Toggle(n int, sold models.NumberList) bool {
	if sold.Contains(n) {
		return false
	}
	if s.Contains(n) {
		s.remove(n)
	} else {
		s.add(n)
	}
	return true
}

func (s *Selection) Contains(n int) bool {
	for _, v := range s.numbers {
		if v == n {
			return true
		}
	}
	return false
}

func (s *Selection) Len() int {
	return len(s.numbers)
}

func (s *Selection) Clear() {
	s.numbers = nil
}

// Numbers returns the selected numbers in insertion order.
func (s *Selection) Numbers() models.NumberList {
	out := make(models.NumberList, len(s.numbers))
	copy(out, s.numbers)
	return out
}

// DropSold removes numbers that have since been sold, returning the ones
// dropped. Used to re-intersect a stale selection after a conflict.
func (s *Selection) DropSold(sold models.NumberList) models.NumberList {
	dropped := models.NumberList{}
	kept := s.numbers[:0]
	for _, n := range s.numbers {
		if sold.Contains(n) {
			dropped = append(dropped, n)
		} else {
			kept = append(kept, n)
		}
	}
	s.numbers = kept
	return dropped
}
