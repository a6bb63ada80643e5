package transport

import (
	"encoding/json"
	"fmt"

	"github.com/vektah/gqlparser/v2/gqlerror"
)

// Mock answers requests by operation name, falling back to the raw query
type Mock map[string]func(req Request) Response

func (m Mock) Request(req Request) Response {
	h, ok := m[req.OperationName]
	if !ok {
		h, ok = m[req.Query]
	}
	if !ok {
		return NewErrorResponse(fmt.Errorf("no mock for operation %q", req.OperationName))
	}

	return h(req)
}

func NewMockOperationResponse(v interface{}, errs gqlerror.List) OperationResponse {
	var data json.RawMessage
	if v != nil {
		b, err := json.Marshal(v)
		if err != nil {
			panic(err)
		}
		data = b
	}

	return OperationResponse{
		Data:   data,
		Errors: errs,
	}
}

// MockBody replies with a raw JSON response body, as a server would send it
func MockBody(body string) func(req Request) Response {
	return func(req Request) Response {
		var opres OperationResponse
		if err := json.Unmarshal([]byte(body), &opres); err != nil {
			return NewErrorResponse(err)
		}

		return NewSingleResponse(opres)
	}
}

// MockError fails every request with err
func MockError(err error) func(req Request) Response {
	return func(req Request) Response {
		return NewErrorResponse(err)
	}
}
