/*
Package converter implements attribute converters and the registry that keeps
one instance of each converter type for the lifetime of the process.

A converter is declared under a name, usually from an init function, so entity
fields can reference it from their struct tags:

	type MoneyConverter struct{}

	func (MoneyConverter) ToStorage(v any) (any, error) { ... }
	func (MoneyConverter) ToEntity(v any) (any, error)  { ... }

	func init() {
	    converter.Declare("money", MoneyConverter{})
	}

	type Worker struct {
	    Salary Money `mapping:"money,convert=money"`
	}

The Registry creates converter instances lazily. Concurrent first requests for
the same type may build more than one instance, but only the first stored
instance is ever handed out.

Built-in converters: "datetime" (strfmt.DateTime and time.Time as RFC3339
strings), "duration" (time.Duration as text) and "json" (any value as JSON).
*/
package converter
