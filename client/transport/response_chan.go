package transport

import "sync"

// SendResponse is a Response fed by a producer goroutine
type SendResponse interface {
	Response
	Send(op OperationResponse) bool
	CloseWithError(err error)
	CloseCh()
}

type ChanResponse struct {
	ch    chan OperationResponse
	dc    chan struct{}
	close func() error

	cor OperationResponse

	m    sync.Mutex
	err  error
	once sync.Once
}

// NewChanResponse creates a response whose values are pushed with Send.
// onClose runs once, when the consumer closes the response or the producer
// fails it.
func NewChanResponse(onClose func() error) *ChanResponse {
	return &ChanResponse{
		ch:    make(chan OperationResponse),
		dc:    make(chan struct{}),
		close: onClose,
	}
}

func (r *ChanResponse) Next() bool {
	select {
	case or := <-r.ch:
		r.cor = or
		return true
	case <-r.dc:
		return false
	}
}

func (r *ChanResponse) Get() OperationResponse {
	return r.cor
}

func (r *ChanResponse) Close() {
	r.finish(nil, true)
}

func (r *ChanResponse) CloseWithError(err error) {
	r.finish(err, true)
}

// CloseCh ends the response normally, without calling onClose
func (r *ChanResponse) CloseCh() {
	r.finish(nil, false)
}

func (r *ChanResponse) finish(err error, notify bool) {
	r.once.Do(func() {
		if notify && r.close != nil {
			if cerr := r.close(); err == nil {
				err = cerr
			}
		}

		r.m.Lock()
		r.err = err
		r.m.Unlock()

		close(r.dc)
	})
}

func (r *ChanResponse) Err() error {
	r.m.Lock()
	defer r.m.Unlock()

	return r.err
}

func (r *ChanResponse) Done() <-chan struct{} {
	return r.dc
}

// Send blocks until the consumer takes op or the response is done
func (r *ChanResponse) Send(op OperationResponse) bool {
	select {
	case r.ch <- op:
		return true
	case <-r.dc:
		return false
	}
}
