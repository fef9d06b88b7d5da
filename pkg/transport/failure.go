package transport

// Failure is the only error kind a Sender returns. Its message is the
// underlying error's message, unchanged.
type Failure struct {
	Backend string
	Err     error
}

// NewFailure wraps err as a Failure for backend. A nil err yields nil.
func NewFailure(backend string, err error) error {
	if err == nil {
		return nil
	}
	return &Failure{Backend: backend, Err: err}
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return ""
	}
	return f.Err.Error()
}

func (f *Failure) Unwrap() error {
	return f.Err
}
