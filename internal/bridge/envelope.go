// Package bridge carries request/response traffic between page-side scripts
// and the automation backend. Requests are tagged envelopes correlated by a
// request id; replies can arrive on two transport paths (direct callback and
// fallback broadcast) and are funneled into a pending-call registry that
// settles each call exactly once.
package bridge

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message type prefix shared by every envelope on the wire.
const Prefix = "COMMENTRON_"

// Envelope operations.
const (
	OpGetStorage  = Prefix + "GET_STORAGE"
	OpSetStorage  = Prefix + "SET_STORAGE"
	OpRuntimeSend = Prefix + "RUNTIME_SEND_MESSAGE"
)

const replyPrefix = Prefix + "BRIDGE_RESULT_"

// Actions understood by the runtime-message dispatcher.
const (
	ActionCheckDailyLimit     = "checkDailyLimit"
	ActionGetCommentSettings  = "getCommentSettings"
	ActionGenerateAIComment   = "generateAIComment"
	ActionGenerateFromContent = "generateCommentFromContent"
	ActionIncrementDailyCount = "incrementDailyCount"
	ActionAuthComplete        = "authComplete"
)

// Request is one transport envelope. Storage ops use Key/Value; runtime
// messages use Action/Payload. RequestID correlates the reply.
type Request struct {
	Type      string          `json:"type"`
	Key       string          `json:"key,omitempty"`
	Value     json.RawMessage `json:"value,omitempty"`
	Action    string          `json:"action,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RequestID string          `json:"requestId"`
}

// Response is the reply envelope. Exactly one of Data and Error is set.
type Response struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// NewRequestID returns a fresh correlation id: millisecond timestamp plus a
// random suffix, unique within any plausible run.
func NewRequestID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// ReplyType builds the tagged reply message type for a request id.
func ReplyType(requestID string) string {
	return replyPrefix + requestID
}

// ParseReplyID extracts the request id from a reply message type, reporting
// whether the type is a reply at all.
func ParseReplyID(msgType string) (string, bool) {
	if !strings.HasPrefix(msgType, replyPrefix) {
		return "", false
	}
	return strings.TrimPrefix(msgType, replyPrefix), true
}

// IsBridgeMessage reports whether a message type belongs to this protocol.
func IsBridgeMessage(msgType string) bool {
	return strings.HasPrefix(msgType, Prefix)
}
