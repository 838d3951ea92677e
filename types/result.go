package types

// Result is the value a job produced. The set of variants is closed:
// MapResult, ScalarResult and ErrorResult.
type Result interface {
	isResult()
}

// MapResult is a structured key-value result.
type MapResult map[string]any

// ScalarResult is any single non-map value.
type ScalarResult struct {
	Value any
}

// ErrorResult is stored when the job function failed.
type ErrorResult struct {
	Message string
}

func (MapResult) isResult()    {}
func (ScalarResult) isResult() {}
func (ErrorResult) isResult()  {}

// NewResult picks the variant matching v.
func NewResult(v any) Result {
	switch value := v.(type) {
	case Result:
		return value
	case map[string]any:
		return MapResult(value)
	default:
		return ScalarResult{Value: v}
	}
}

// Payload renders a result the way status views expose it:
// maps as-is, scalars wrapped under "value", errors as an empty map.
func Payload(r Result) map[string]any {
	switch value := r.(type) {
	case MapResult:
		if value == nil {
			return map[string]any{}
		}
		return map[string]any(value)
	case ScalarResult:
		return map[string]any{"value": value.Value}
	case ErrorResult:
		return map[string]any{}
	default:
		return map[string]any{}
	}
}
