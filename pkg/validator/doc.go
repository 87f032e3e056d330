// Package validator provides small, composable validation rules.
//
// A Rule pairs a Check func with the ValidationError it reports, whose Code
// is a stable key clients can match on. Apply
// evaluates rules and collects the failures into ValidationErrors, which
// implements error, so several field problems come back from one call.
//
//	err := validator.Apply(
//	    validator.RequiredString("name", in.Name),
//	    validator.ValidPhone("phone", in.Phone),
//	    validator.When(in.Email != "", validator.ValidEmail("email", in.Email)),
//	    validator.RangeNum("priority", in.Priority, 1, 4),
//	)
//	if verrs := validator.ExtractValidationErrors(err); verrs != nil {
//	    // verrs.Has("phone"), verrs.Get("phone"), verrs.Fields()
//	}
//
// Rules are plain values with no shared state and are safe for concurrent use.
package validator
