package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type HttpRequestOption func(req *http.Request)

type Http struct {
	URL string
	// Client defaults to http.DefaultClient
	Client         *http.Client
	RequestOptions []HttpRequestOption
}

// HttpError is returned when the server answers with a non 2xx status and
// a body that is not a GraphQL response
type HttpError struct {
	StatusCode int
	Body       []byte
}

func (e *HttpError) Error() string {
	return fmt.Sprintf("http status %v: %s", e.StatusCode, e.Body)
}

func (h *Http) request(gqlreq Request) (*OperationResponse, error) {
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}

	bodyb, err := json.Marshal(NewOperationRequestFromRequest(gqlreq))
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(gqlreq.Context, "POST", h.URL, bytes.NewReader(bodyb))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	for _, ro := range h.RequestOptions {
		ro(req)
	}

	res, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	var opres OperationResponse
	err = json.Unmarshal(data, &opres)
	if err != nil {
		if res.StatusCode < 200 || res.StatusCode > 299 {
			return nil, &HttpError{StatusCode: res.StatusCode, Body: data}
		}

		return nil, err
	}

	return &opres, nil
}

func (h *Http) Request(req Request) Response {
	opres, err := h.request(req)
	if err != nil {
		return NewErrorResponse(err)
	}

	return NewSingleResponse(*opres)
}

// WithHeader sets a static header on every request
func WithHeader(key, value string) HttpRequestOption {
	return func(req *http.Request) {
		req.Header.Set(key, value)
	}
}
