/*
Package errors provides semantic error types for the entitymapper library.

The package defines common error scenarios with specific types that can be
checked using the standard errors.Is() function or the provided helper functions.

Common Errors:

	var (
	    ErrNotFound        = errors.New("not found")
	    ErrAlreadyExists   = errors.New("entity already exists")
	    ErrInvalidInput    = errors.New("invalid input")
	    ErrConditionFailed = errors.New("condition check failed")
	    ErrUnknownField    = errors.New("unknown field")
	    ErrMapping         = errors.New("mapping failed")
	    ErrInvalidState    = errors.New("invalid builder state")
	    ErrUnsupported     = errors.New("unsupported by backend")
	)

Usage:

	q, err := mapper.SelectFrom(Person{}).Where("job.city").Eq("Salvador").Build()
	if err != nil {
	    if errors.IsUnknownField(err) {
	        // the entity has no such field, a programming error
	    }
	    return err
	}

	// Create typed errors
	err := errors.NewNotFoundError("Person", "123")
	err := errors.NewMappingError("Worker", "salary", cause)
	err := errors.NewInvalidStateError("Where", "BUILT")

The error types implement the error interface and support wrapping,
making them compatible with Go's standard error handling patterns.
MappingError additionally unwraps to the converter or coercion failure
that caused it.
*/
package errors
