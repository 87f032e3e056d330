package validator

import "fmt"

func MinNum[T Numeric](field string, value, min T) Rule {
	return newRule(field, "min", fmt.Sprintf("must be at least %v", min), func() bool {
		return value >= min
	})
}

// RangeNum checks min <= value <= max.
func RangeNum[T Numeric](field string, value, min, max T) Rule {
	return newRule(field, "range", fmt.Sprintf("must be between %v and %v", min, max), func() bool {
		return value >= min && value <= max
	})
}

func MaxNum[T Numeric](field string, value, max T) Rule {
	return newRule(field, "max", fmt.Sprintf("must be at most %v", max), func() bool {
		return value <= max
	})
}

// PositiveNum checks value > 0.
func PositiveNum[T Numeric](field string, value T) Rule {
	return newRule(field, "positive", "must be positive", func() bool {
		var zero T
		return value > zero
	})
}

// LessNum checks value < bound.
func LessNum[T Numeric](field string, value, bound T) Rule {
	return newRule(field, "less", fmt.Sprintf("must be less than %v", bound), func() bool {
		return value < bound
	})
}
