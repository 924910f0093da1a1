package transport

import (
	"encoding/json"
	"net/http"

	"github.com/yndnr/syncmesh-go/pkg/datatype"
)

// Snapshot is a store-confirmed datatype state: the reported type name, the
// decoded JSON value, and the causal context token minted alongside it. The
// context travels as an opaque string and is echoed back verbatim with
// operations that depend on it.
type Snapshot struct {
	Type    string `json:"type"`
	Value   any    `json:"value"`
	Context string `json:"context,omitempty"`
}

// FetchRequest addresses a datatype for reading.
type FetchRequest struct {
	BucketType string
	Bucket     string
	Key        string
}

// UpdateRequest carries a staged delta to the store.
type UpdateRequest struct {
	BucketType string
	Bucket     string
	Key        string

	// TypeName is the wire name of the datatype ("set", "counter", ...).
	TypeName string

	// Op is the staged delta, marshalled verbatim into the request body.
	Op datatype.Op

	// Context is the causal token from the snapshot the delta was staged
	// against. Empty when the instance has never been reset from the store.
	Context string

	// ReturnBody asks the store to respond with the committed snapshot.
	ReturnBody bool
}

// DeleteRequest addresses a datatype for removal.
type DeleteRequest struct {
	BucketType string
	Bucket     string
	Key        string
}

// updateBody is the wire form of an update.
type updateBody struct {
	Type       string      `json:"type"`
	Op         datatype.Op `json:"op"`
	Context    string      `json:"context,omitempty"`
	ReturnBody bool        `json:"return_body,omitempty"`
}

// errorBody is the wire form of a store error response.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// sentinelByCode maps store error codes to their client sentinels.
var sentinelByCode = map[string]*datatype.Error{
	datatype.ErrInvalidElement.Code:     datatype.ErrInvalidElement,
	datatype.ErrInvalidSnapshot.Code:    datatype.ErrInvalidSnapshot,
	datatype.ErrUnknownDatatype.Code:    datatype.ErrUnknownDatatype,
	datatype.ErrContextRequired.Code:    datatype.ErrContextRequired,
	datatype.ErrInvalidArgument.Code:    datatype.ErrInvalidArgument,
	datatype.ErrUnauthorized.Code:       datatype.ErrUnauthorized,
	datatype.ErrKeyNotFound.Code:        datatype.ErrKeyNotFound,
	datatype.ErrUnexpectedDatatype.Code: datatype.ErrUnexpectedDatatype,
	datatype.ErrRateLimited.Code:        datatype.ErrRateLimited,
	datatype.ErrServerError.Code:        datatype.ErrServerError,
	datatype.ErrUnavailable.Code:        datatype.ErrUnavailable,
}

// errorFromResponse maps a store error response to its client sentinel. The
// body carries {code,message}; when the code is missing or unknown the HTTP
// status alone decides.
func errorFromResponse(resp *http.Response) error {
	var body errorBody
	_ = json.NewDecoder(resp.Body).Decode(&body)

	sentinel, ok := sentinelByCode[body.Code]
	if !ok {
		sentinel = sentinelByStatus(resp.StatusCode)
	}
	if body.Message != "" && body.Message != sentinel.Message {
		return sentinel.WithDetails(body.Message)
	}
	return sentinel
}

// sentinelByStatus maps an HTTP status code to a client sentinel.
func sentinelByStatus(status int) *datatype.Error {
	switch {
	case status == http.StatusUnauthorized:
		return datatype.ErrUnauthorized
	case status == http.StatusNotFound:
		return datatype.ErrKeyNotFound
	case status == http.StatusConflict:
		return datatype.ErrUnexpectedDatatype
	case status == http.StatusPreconditionRequired:
		return datatype.ErrContextRequired
	case status == http.StatusTooManyRequests:
		return datatype.ErrRateLimited
	case status >= 500:
		return datatype.ErrServerError
	default:
		return datatype.ErrInvalidArgument
	}
}
