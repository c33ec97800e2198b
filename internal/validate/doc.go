// Package validate checks input at the boundary between callers and the
// store.
//
// Create requests are plain structs carrying `validate` tags; Struct runs
// them through go-playground/validator with JSON field names, so messages
// name the field the caller actually sent. Tag and Link cover the few
// inputs that are not structs.
//
// All failures wrap one of the sentinels in errors.go:
//
//	if errors.Is(err, validate.ErrInvalid) {
//	    // reject the request
//	}
package validate
