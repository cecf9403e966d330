package model

import (
	"encoding/json"
)

// Response methods produced by the relay or the approval surface.
const (
	MethodNameConnected          = "connected"
	MethodNameDisconnected       = "disconnected"
	MethodNameConnectProvisioned = "connect_provisioned"
	MethodNameError              = "error"
)

// Error codes carried in error responses.
const (
	ErrCodeRejected      = "rejected"
	ErrCodeTimeout       = "timeout"
	ErrCodeCancelled     = "cancelled"
	ErrCodeClosed        = "closed"
	ErrCodeInvalidResult = "invalid_result"
	ErrCodeInternal      = "internal"
	ErrCodeMalformed     = "malformed"
)

// Response is delivered exactly once to the caller of a request
type Response struct {
	Method string          `json:"method"`
	ID     string          `json:"id"`
	Params json.RawMessage `json:"params,omitempty"`
}

// ConnectedParams are the params of a "connected" response
type ConnectedParams struct {
	PublicKey   string `json:"publicKey"`
	AutoApprove bool   `json:"autoApprove"`
}

// ProvisionedParams are the params of a "connect_provisioned" response.
// Accounts maps each requested account name to the chosen address.
type ProvisionedParams struct {
	Accounts map[string]string `json:"accounts"`
}

// ErrorParams are the params of an "error" response
type ErrorParams struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// NewResponse builds a response with params marshalled to JSON.
// A nil params value produces a response without params.
func NewResponse(method, id string, params any) (Response, error) {
	resp := Response{Method: method, ID: id}
	if params == nil {
		return resp, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return Response{}, err
	}
	resp.Params = raw
	return resp, nil
}

// NewErrorResponse builds the error response for id.
func NewErrorResponse(id, code, reason string) Response {
	// ErrorParams always marshals
	raw, _ := json.Marshal(ErrorParams{Code: code, Reason: reason})
	return Response{Method: MethodNameError, ID: id, Params: raw}
}

// IsError reports whether the response is an error response
func (r Response) IsError() bool {
	return r.Method == MethodNameError
}

// DecodeParams unmarshals the response params into v
func (r Response) DecodeParams(v any) error {
	if len(r.Params) == 0 {
		return json.Unmarshal([]byte("{}"), v)
	}
	return json.Unmarshal(r.Params, v)
}
