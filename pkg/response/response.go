package response

// Response represents the envelope every EcoFood endpoint answers with
type Response struct {
	Status     string `json:"status"`      // "success" or "error"
	StatusCode int    `json:"status_code"` // HTTP status code
	Data       any    `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data any) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// WithRequestID tags the envelope so clients can quote it when reporting failures.
func (r Response) WithRequestID(id string) Response {
	r.RequestID = id
	return r
}

// OK reports whether the envelope describes a 2xx outcome.
func (r Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
