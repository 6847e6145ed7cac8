package transport

// Response is the transport-independent result of a request. It is built
// fresh for every call and belongs to the caller once returned.
type Response struct {
	StatusCode int
	Body       []byte
}

// Result pairs a response with its error for asynchronous calls.
type Result struct {
	Response *Response
	Err      error
}

// classify maps a response to success, a server error or a client error.
// 5xx always wins over the expected status.
func classify(resp *Response, expected int) (*Response, error) {
	switch {
	case resp.StatusCode >= 500 && resp.StatusCode < 600:
		return nil, &ServerError{StatusCode: resp.StatusCode, Body: resp.Body}
	case resp.StatusCode == expected:
		return resp, nil
	default:
		return nil, &ClientError{StatusCode: resp.StatusCode, Body: resp.Body}
	}
}
