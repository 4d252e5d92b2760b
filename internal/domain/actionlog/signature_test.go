package actionlog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	actor := uuid.New()
	entry, err := NewEntry(&actor, ActionSwapAccepted, map[string]interface{}{
		"match_id": uuid.New().String(),
	}, "203.0.113.7")
	require.NoError(t, err)

	key := []byte("test-signing-key")
	sig, err := Sign(entry, key)
	require.NoError(t, err)
	entry.Signature = sig

	ok, err := VerifySignature(entry, key)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyRejectsTampering(t *testing.T) {
	entry, err := NewEntry(nil, ActionAutoOfferCreated, nil, "")
	require.NoError(t, err)

	key := []byte("test-signing-key")
	entry.Signature, err = Sign(entry, key)
	require.NoError(t, err)

	entry.Action = ActionOfferDeleted

	ok, err := VerifySignature(entry, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	entry, err := NewEntry(nil, ActionMatchCreated, nil, "")
	require.NoError(t, err)

	entry.Signature, err = Sign(entry, []byte("key-a"))
	require.NoError(t, err)

	ok, err := VerifySignature(entry, []byte("key-b"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyEmptySignature(t *testing.T) {
	entry, err := NewEntry(nil, ActionMatchCreated, nil, "")
	require.NoError(t, err)

	ok, err := VerifySignature(entry, []byte("key"))
	require.NoError(t, err)
	assert.False(t, ok)
}
