// Package validator builds declarative validation out of small Rule values.
//
// Each rule constructor captures the value under test and returns a Rule;
// Apply evaluates them all and aggregates failures into ValidationErrors,
// which implements error.
//
//	err := validator.Apply(
//	    validator.RequiredString("user_id", req.UserID),
//	    validator.MaxLenString("user_id", req.UserID, 128),
//	    validator.When(req.RequestID != "", validator.NoControlChars("request_id", req.RequestID)),
//	)
//	if errs := validator.ExtractValidationErrors(err); errs != nil {
//	    // errs.Fields() lists every offending field
//	}
package validator
