package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// NumberList stores an ordered list of ticket numbers as a JSON column.
// Order is preserved because the confirmation message lists numbers in the
// order the buyer picked them.
type NumberList []int

func (n NumberList) Value() (driver.Value, error) {
	if n == nil {
		n = NumberList{}
	}
	return json.Marshal(n)
}

func (n *NumberList) Scan(value interface{}) error {
	if value == nil {
		*n = NumberList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, n)
	case string:
		return json.Unmarshal([]byte(v), n)
	}
	return fmt.Errorf("cannot scan %T into NumberList", value)
}

// Contains reports whether num is in the list.
func (n NumberList) Contains(num int) bool {
	for _, v := range n {
		if v == num {
			return true
		}
	}
	return false
}

// Diff returns the numbers in n that are not in other, preserving order.
func (n NumberList) Diff(other NumberList) NumberList {
	out := NumberList{}
	for _, v := range n {
		if !other.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}
