package actionlog

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"time"
)

type signaturePayload struct {
	EntryID     string `json:"entryId"`
	ActorUserID string `json:"actorUserId,omitempty"`
	Action      string `json:"action"`
	Details     string `json:"details,omitempty"`
	IP          string `json:"ip,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

func buildSignaturePayload(e *Entry) signaturePayload {
	payload := signaturePayload{
		EntryID:   e.EntryID.String(),
		Action:    string(e.Action),
		IP:        e.IP,
		CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if e.ActorUserID != nil {
		payload.ActorUserID = e.ActorUserID.String()
	}
	if len(e.Details) > 0 {
		payload.Details = base64.StdEncoding.EncodeToString(e.Details)
	}
	return payload
}

// Sign generates an HMAC signature for the entry.
func Sign(e *Entry, key []byte) ([]byte, error) {
	data, err := json.Marshal(buildSignaturePayload(e))
	if err != nil {
		return nil, err
	}
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write(data)
	return mac.Sum(nil), nil
}

// VerifySignature verifies the HMAC signature for the entry.
func VerifySignature(e *Entry, key []byte) (bool, error) {
	if len(e.Signature) == 0 {
		return false, nil
	}
	expected, err := Sign(e, key)
	if err != nil {
		return false, err
	}
	return hmac.Equal(expected, e.Signature), nil
}
