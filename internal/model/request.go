package model

import (
	"encoding/json"
)

// Channels carried by inbound envelopes.
const (
	PageChannel           = "page_to_relay"
	ApprovalResultChannel = "relay_to_approval_result"
)

// Method names understood by the relay.
const (
	MethodNameConnect          = "connect"
	MethodNameDisconnect       = "disconnect"
	MethodNameConnectProvision = "connectProvision"
)

// MethodKind is the closed set of request variants the relay dispatches on.
type MethodKind int

const (
	MethodOpaque MethodKind = iota
	MethodConnect
	MethodDisconnect
	MethodConnectProvision
)

func (k MethodKind) String() string {
	switch k {
	case MethodConnect:
		return MethodNameConnect
	case MethodDisconnect:
		return MethodNameDisconnect
	case MethodConnectProvision:
		return MethodNameConnectProvision
	default:
		return "opaque"
	}
}

// Method is a parsed request method. Name keeps the raw method string so
// opaque requests can be passed through to the approval surface unchanged.
type Method struct {
	Kind MethodKind
	Name string
}

// ParseMethod maps a raw method string to its variant.
// Anything that is not a known control method is an explicit Opaque variant.
func ParseMethod(name string) Method {
	switch name {
	case MethodNameConnect:
		return Method{Kind: MethodConnect, Name: name}
	case MethodNameDisconnect:
		return Method{Kind: MethodDisconnect, Name: name}
	case MethodNameConnectProvision:
		return Method{Kind: MethodConnectProvision, Name: name}
	default:
		return Method{Kind: MethodOpaque, Name: name}
	}
}

// Request is the page-to-relay envelope
type Request struct {
	Channel string      `json:"channel"`
	Data    RequestData `json:"data"`
}

// RequestData is the payload of a page request
type RequestData struct {
	ID      string          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	Network string          `json:"network,omitempty"`
}

// ResolveNetwork returns the request network. Older pages put it under
// params.network instead of the top level.
func (d RequestData) ResolveNetwork() string {
	if d.Network != "" {
		return d.Network
	}
	if len(d.Params) == 0 {
		return ""
	}
	var p struct {
		Network string `json:"network"`
	}
	if err := json.Unmarshal(d.Params, &p); err != nil {
		return ""
	}
	return p.Network
}

// ApprovalResult is the approval-surface-to-relay envelope
type ApprovalResult struct {
	Channel string   `json:"channel"`
	Data    Response `json:"data"`
}
