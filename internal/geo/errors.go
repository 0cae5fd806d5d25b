package geo

// InvalidExtentError reports a geographic request that can never be
// satisfied: outside the Web Mercator latitude limits, wider than the
// globe, or demanding a resolution no zoom level provides. It is fatal
// and never retried.
type InvalidExtentError struct {
	Reason string
}

func (e *InvalidExtentError) Error() string {
	return "invalid extent: " + e.Reason
}
