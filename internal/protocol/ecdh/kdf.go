package ecdh

import (
	"crypto/sha256"
	"crypto/sha512"

	"github.com/smallyu/go-ecdh/internal/crypto/ec"
)

// sessionKeyLen is the SHA-384 output: 32 bytes of cipher key followed
// by 8 bytes of nonce seed, with 8 spare.
const sessionKeyLen = sha512.Size384

// deriveKey hashes the canonical encoding of the shared point into the
// session key material.
func deriveKey(shared *ec.Point) [sessionKeyLen]byte {
	return sha512.Sum384(shared.Bytes())
}

// deriveSharedKey is the two-point variant used by the sealed-box
// construction: the ephemeral public point binds the key to the
// ciphertext.
func deriveSharedKey(bg, abg *ec.Point) [sessionKeyLen]byte {
	h := sha512.New384()
	h.Write(bg.Bytes())
	h.Write(abg.Bytes())
	var out [sessionKeyLen]byte
	h.Sum(out[:0])
	return out
}

// Confirmation tags: each side proves it derived the same key by
// encrypting a hash of the exchanged public points, with a distinct
// domain prefix per role so the two tags differ.
const (
	initiatorTagDomain = "go-ecdh/confirm/initiator"
	responderTagDomain = "go-ecdh/confirm/responder"
)

func confirmationTag(domain string, ag, bg *ec.Point) []byte {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write(ag.Bytes())
	h.Write(bg.Bytes())
	return h.Sum(nil)
}
