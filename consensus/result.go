package consensus

// ValidationResult carries a payload and the consensus errors collected
// while producing it. A result is valid when it has no errors; the payload
// may still be set on an invalid result, which is how a stage hands back a
// degraded action alongside its rejection.
type ValidationResult[T any] struct {
	Data    T
	HasData bool
	Errors  []*Error
}

// Valid returns a result holding data and no errors.
func Valid[T any](data T) ValidationResult[T] {
	return ValidationResult[T]{Data: data, HasData: true}
}

// Invalid returns a result holding only errors.
func Invalid[T any](errs ...*Error) ValidationResult[T] {
	return ValidationResult[T]{Errors: errs}
}

// InvalidWithData returns a rejected result that still carries data.
func InvalidWithData[T any](data T, errs ...*Error) ValidationResult[T] {
	return ValidationResult[T]{Data: data, HasData: true, Errors: errs}
}

func (r ValidationResult[T]) IsValid() bool { return len(r.Errors) == 0 }

// AddError appends errors in order.
func (r *ValidationResult[T]) AddError(errs ...*Error) {
	r.Errors = append(r.Errors, errs...)
}

// SetData sets the payload.
func (r *ValidationResult[T]) SetData(data T) {
	r.Data = data
	r.HasData = true
}

// FirstError returns the first collected error, or nil.
func (r ValidationResult[T]) FirstError() *Error {
	if len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[0]
}

// Merge appends the errors of other, keeping the payload of r.
func Merge[T, U any](r *ValidationResult[T], other ValidationResult[U]) {
	r.Errors = append(r.Errors, other.Errors...)
}

// Map converts the payload type, keeping errors.
func Map[T, U any](r ValidationResult[T], f func(T) U) ValidationResult[U] {
	out := ValidationResult[U]{Errors: r.Errors, HasData: r.HasData}
	if r.HasData {
		out.Data = f(r.Data)
	}
	return out
}
