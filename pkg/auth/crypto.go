// Package auth implements the login & session-encryption pipeline: the
// Mojang session-join handshake (RSA-wrapped shared secret, SHA-1
// verification hash) and the Microsoft/Xbox-Live/XSTS/Minecraft-services
// auth chain, grounded on protocol/crypt.py, protocol/auth.py, and
// auth/ms.py.
package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"math/big"
)

// GenerateKeyPair returns a fresh 1024-bit RSA key pair for the login
// encryption-request step, matching protocol/crypt.py's
// generate_rsa_keypair key size.
func GenerateKeyPair() (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, 1024)
}

// PublicKeyDER serializes pub in the SubjectPublicKeyInfo DER form the
// client expects in an encryption-request packet.
func PublicKeyDER(pub *rsa.PublicKey) ([]byte, error) {
	return x509.MarshalPKIXPublicKey(pub)
}

// DecryptPKCS1v15 unwraps the client's encrypted shared secret / verify
// token using the proxy's private key, per protocol/crypt.py's
// pkcs1_v15_padded_rsa_decrypt.
func DecryptPKCS1v15(priv *rsa.PrivateKey, ciphertext []byte) ([]byte, error) {
	return rsa.DecryptPKCS1v15(rand.Reader, priv, ciphertext)
}

// EncryptPKCS1v15 wraps plaintext (the shared secret or verify token) with
// the server's DER-encoded public key, per protocol/crypt.py's
// pkcs1_v15_padded_rsa_encrypt, used when the proxy acts as the Login
// client talking to the upstream server.
func EncryptPKCS1v15(derPublicKey []byte, plaintext []byte) ([]byte, error) {
	pub, err := x509.ParsePKIXPublicKey(derPublicKey)
	if err != nil {
		return nil, err
	}
	rsaPub := pub.(*rsa.PublicKey)
	return rsa.EncryptPKCS1v15(rand.Reader, rsaPub, plaintext)
}

// VerificationHash computes the Mojang session-join hash: SHA-1 over
// server_id || shared_secret || public_key, interpreted as a signed
// big-endian integer and rendered as lowercase hex (Java's
// BigInteger.toString(16) semantics), per the algorithm in
// protocol/crypt.py's generate_verification_hash (credited there to
// pyCraft's encryption.py).
func VerificationHash(serverID string, sharedSecret, publicKeyDER []byte) string {
	h := sha1.New()
	h.Write([]byte(serverID))
	h.Write(sharedSecret)
	h.Write(publicKeyDER)
	digest := h.Sum(nil)

	n := new(big.Int).SetBytes(digest)
	// digest[0] & 0x80 means the 160-bit value is "negative" under Java's
	// signed BigInteger(byte[]) constructor: two's-complement negate.
	if digest[0]&0x80 != 0 {
		max := new(big.Int).Lsh(big.NewInt(1), 160)
		n.Sub(n, max)
	}
	if n.Sign() < 0 {
		return "-" + new(big.Int).Neg(n).Text(16)
	}
	return n.Text(16)
}
