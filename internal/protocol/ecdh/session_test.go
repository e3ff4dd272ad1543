package ecdh

import (
	"bytes"
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runHandshake drives both sessions to completion by relaying every
// produced message to the other side.
func runHandshake(t *testing.T, init, resp *Session) {
	t.Helper()

	msg, err := init.Start()
	require.NoError(t, err)

	pending := [][]byte{msg}
	to := resp
	for len(pending) > 0 {
		var next [][]byte
		for _, m := range pending {
			out, err := to.HandleMessage(m)
			require.NoError(t, err, "in state %v", to.State())
			next = append(next, out...)
		}
		pending = next
		if to == resp {
			to = init
		} else {
			to = resp
		}
	}
}

func TestHandshake(t *testing.T) {
	init := NewInitiator(Config{})
	resp := NewResponder(Config{})

	runHandshake(t, init, resp)

	assert.True(t, init.Established())
	assert.True(t, resp.Established())
	assert.Equal(t, StateConfirmed, init.State())
	assert.Equal(t, StateConfirmed, resp.State())

	require.NotNil(t, init.SessionKey())
	assert.Equal(t, init.SessionKey(), resp.SessionKey())
}

func TestEncryptDecryptAfterHandshake(t *testing.T) {
	init := NewInitiator(Config{})
	resp := NewResponder(Config{})
	runHandshake(t, init, resp)

	for _, msg := range []string{"hello", "", "a longer message that spans more than one cipher block, to exercise the padding"} {
		ct, err := init.EncryptMessage([]byte(msg))
		require.NoError(t, err)
		if msg != "" {
			assert.False(t, bytes.Contains(ct, []byte(msg)))
		}

		pt, err := resp.DecryptMessage(ct)
		require.NoError(t, err)
		assert.Equal(t, msg, string(pt))
	}

	// And the other direction.
	ct, err := resp.EncryptMessage([]byte("pong"))
	require.NoError(t, err)
	pt, err := init.DecryptMessage(ct)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(pt))
}

func TestEncryptBeforeEstablished(t *testing.T) {
	init := NewInitiator(Config{})
	_, err := init.EncryptMessage([]byte("too early"))
	assert.ErrorIs(t, err, ErrNotEstablished)
}

func TestStartOnlyOnce(t *testing.T) {
	init := NewInitiator(Config{})
	_, err := init.Start()
	require.NoError(t, err)

	_, err = init.Start()
	assert.ErrorIs(t, err, ErrBadState)
}

func TestResponderCannotStart(t *testing.T) {
	resp := NewResponder(Config{})
	_, err := resp.Start()
	assert.ErrorIs(t, err, ErrBadState)
}

func TestResponderRejectsGarbageSetup(t *testing.T) {
	resp := NewResponder(Config{})
	_, err := resp.HandleMessage([]byte{0x01, 0x02, 0x03})
	assert.ErrorIs(t, err, ErrInvalidMessage)
	assert.Equal(t, StateFailed, resp.State())
}

func TestResponderRejectsSingularCurve(t *testing.T) {
	// p=967 with a=b=c=0: y^2 = x^3 is singular and must be refused
	// before any point decoding happens.
	msg := appendInt(nil, big.NewInt(967))
	msg = appendInt(msg, big.NewInt(0))
	msg = appendInt(msg, big.NewInt(0))
	msg = appendInt(msg, big.NewInt(0))
	msg = append(msg, 0x00, 0x00)

	resp := NewResponder(Config{})
	_, err := resp.HandleMessage(msg)
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestConfirmationTagMismatch(t *testing.T) {
	init := NewInitiator(Config{})
	resp := NewResponder(Config{})

	setup, err := init.Start()
	require.NoError(t, err)
	out, err := resp.HandleMessage(setup)
	require.NoError(t, err)
	require.Len(t, out, 1)

	tags, err := init.HandleMessage(out[0])
	require.NoError(t, err)
	require.Len(t, tags, 1)

	// Flip a ciphertext bit in the initiator's tag.
	tampered := append([]byte(nil), tags[0]...)
	tampered[10] ^= 0x40
	_, err = resp.HandleMessage(tampered)
	assert.ErrorIs(t, err, ErrProtocolMismatch)
	assert.Equal(t, StateFailed, resp.State())
}

func TestSetupRoundTrip(t *testing.T) {
	init := NewInitiator(Config{})
	setup, err := init.Start()
	require.NoError(t, err)

	curve, g, ag, err := parseSetup(setup)
	require.NoError(t, err)
	assert.Equal(t, init.curve.String(), curve.String())
	assert.True(t, g.Equal(init.g))
	assert.True(t, ag.Equal(init.ag))
}

func TestElGamalSealOpen(t *testing.T) {
	sk, err := GenerateKeyPair(Config{})
	require.NoError(t, err)

	msg := []byte("attack at dawn")
	sealed, err := sk.PublicKey.Seal(rand.Reader, msg)
	require.NoError(t, err)
	assert.NotEqual(t, msg, sealed.Ciphertext)

	opened, err := sk.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, msg, opened)
}

func TestElGamalOpenRejectsMissingPoint(t *testing.T) {
	sk, err := GenerateKeyPair(Config{})
	require.NoError(t, err)

	_, err = sk.Open(&SealedMessage{BG: nil, Ciphertext: []byte{1}})
	assert.ErrorIs(t, err, ErrInvalidMessage)
}
