package ecdh

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/salsa20"
)

// streamCipher encrypts the post-handshake message stream with
// Salsa20. Each message gets a fresh nonce built from the sender's role
// byte and a per-direction sequence counter, so the two directions and
// successive messages never share a keystream. Decryption relies on the
// transport delivering messages in order, which TCP guarantees.
type streamCipher struct {
	key      [32]byte
	roleByte byte
	sendSeq  uint64
	recvSeq  uint64
}

const cipherBlock = 64

func newStreamCipher(key [sessionKeyLen]byte, roleByte byte) *streamCipher {
	c := &streamCipher{roleByte: roleByte}
	copy(c.key[:], key[:32])
	return c
}

func nonce(role byte, seq uint64) []byte {
	n := make([]byte, 8)
	binary.BigEndian.PutUint64(n, seq)
	n[0] = role
	return n
}

// encrypt frames the plaintext with a 4-byte length, pads it to the
// cipher block granularity and applies the keystream.
func (c *streamCipher) encrypt(plaintext []byte) []byte {
	framed := make([]byte, 4+len(plaintext))
	binary.BigEndian.PutUint32(framed, uint32(len(plaintext)))
	copy(framed[4:], plaintext)
	if rem := len(framed) % cipherBlock; rem != 0 {
		framed = append(framed, make([]byte, cipherBlock-rem)...)
	}

	out := make([]byte, len(framed))
	salsa20.XORKeyStream(out, framed, nonce(c.roleByte, c.sendSeq), &c.key)
	c.sendSeq++
	return out
}

// decrypt reverses encrypt using the peer's role byte.
func (c *streamCipher) decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < 4 || len(ciphertext)%cipherBlock != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d", ErrInvalidMessage, len(ciphertext))
	}

	framed := make([]byte, len(ciphertext))
	salsa20.XORKeyStream(framed, ciphertext, nonce(peerRole(c.roleByte), c.recvSeq), &c.key)
	c.recvSeq++

	n := binary.BigEndian.Uint32(framed)
	if int(n) > len(framed)-4 {
		return nil, fmt.Errorf("%w: framed length %d exceeds payload", ErrInvalidMessage, n)
	}
	return framed[4 : 4+n], nil
}

const (
	roleInitiator byte = 0x01
	roleResponder byte = 0x02
)

func peerRole(r byte) byte {
	if r == roleInitiator {
		return roleResponder
	}
	return roleInitiator
}
