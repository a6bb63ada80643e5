package transport

import "sync"

type SingleResponse struct {
	or OperationResponse

	calledNext bool
	dm         sync.Mutex
	dc         chan struct{}
}

func NewSingleResponse(or OperationResponse) *SingleResponse {
	return &SingleResponse{or: or}
}

func (r *SingleResponse) Next() bool {
	defer func() {
		r.calledNext = true
	}()

	return !r.calledNext
}

func (r *SingleResponse) Get() OperationResponse {
	return r.or
}

func (r *SingleResponse) Close() {}

func (r *SingleResponse) Done() <-chan struct{} {
	r.dm.Lock()
	if r.dc == nil {
		r.dc = make(chan struct{})
		close(r.dc)
	}
	r.dm.Unlock()

	return r.dc
}

func (r *SingleResponse) Err() error {
	return nil
}

// ErrorResponse is a Response that failed before producing anything
type ErrorResponse struct {
	err error
	dc  chan struct{}
}

func NewErrorResponse(err error) *ErrorResponse {
	dc := make(chan struct{})
	close(dc)

	return &ErrorResponse{err: err, dc: dc}
}

func (r *ErrorResponse) Next() bool {
	return false
}

func (r *ErrorResponse) Get() OperationResponse {
	return OperationResponse{}
}

func (r *ErrorResponse) Close() {}

func (r *ErrorResponse) Done() <-chan struct{} {
	return r.dc
}

func (r *ErrorResponse) Err() error {
	return r.err
}
