package lending

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleStaff   Role = "STAFF"
	RoleAdmin   Role = "ADMIN"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleStudent, RoleStaff, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrValidation, s)
}

// Condition is the physical state of an equipment item.
type Condition string

const (
	ConditionExcellent Condition = "Excellent"
	ConditionGood      Condition = "Good"
	ConditionFair      Condition = "Fair"
	ConditionPoor      Condition = "Poor"
)

func ParseCondition(s string) (Condition, error) {
	for _, c := range []Condition{ConditionExcellent, ConditionGood, ConditionFair, ConditionPoor} {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unknown condition %q", ErrValidation, s)
}
