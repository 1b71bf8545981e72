package app

// StartupError marks a failure that happened before any stage ran, such as
// an invalid configuration, a manifest mismatch or a graph that could not be
// built.
type StartupError struct {
	Err error
}

func (e *StartupError) Error() string {
	return e.Err.Error()
}

func (e *StartupError) Unwrap() error {
	return e.Err
}
