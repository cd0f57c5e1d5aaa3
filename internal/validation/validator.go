package validation

// Validator checks graph and equation payloads before they reach the store.
// A partial payload is an update: every field is optional, but the ones
// present obey the same limits.
type Validator interface {
	ValidateGraph(doc any, partial bool) error
	ValidateEquation(doc any, partial bool) error
}
