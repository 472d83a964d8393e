// Package codec implements the I/O side of the wire protocol: framed
// packet reads/writes over a buffered connection, with optional zlib
// compression and AES-128/CFB8 stream encryption layered on top.
package codec

import (
	"crypto/aes"
	"crypto/cipher"
)

// cfb8 implements AES in 8-bit cipher-feedback mode. The standard library's
// cipher.NewCFBEncrypter/Decrypter operate in full-block CFB (feedback size
// == block size), which is not wire-compatible with the Minecraft protocol's
// byte-oriented CFB8 (shared secret doubles as both key and IV, per
// spec.md §3/§4.E). There is no CFB8 implementation in crypto/cipher or in
// any library the retrieval pack imports, so this is a small, self-contained
// adaptation of the textbook CFB construction to an 8-bit feedback register.
type cfb8 struct {
	block     cipher.Block
	register  []byte // size == block.BlockSize(), shifts one byte per step
	decrypt   bool
	scratch   []byte
}

func newCFB8(block cipher.Block, iv []byte, decrypt bool) *cfb8 {
	register := make([]byte, block.BlockSize())
	copy(register, iv)
	return &cfb8{
		block:    block,
		register: register,
		decrypt:  decrypt,
		scratch:  make([]byte, block.BlockSize()),
	}
}

// XORKeyStream transforms src into dst one byte at a time, self-synchronising
// on the running cipher register. dst and src may overlap exactly like
// cipher.Stream requires.
func (c *cfb8) XORKeyStream(dst, src []byte) {
	for i, in := range src {
		c.block.Encrypt(c.scratch, c.register)
		out := c.scratch[0] ^ in

		// Shift the register left by one byte and append the byte that was
		// actually transmitted on the wire: the ciphertext byte. For
		// encryption that's `out`; for decryption it's the input `in`.
		var fedBack byte
		if c.decrypt {
			fedBack = in
		} else {
			fedBack = out
		}
		copy(c.register, c.register[1:])
		c.register[len(c.register)-1] = fedBack

		dst[i] = out
	}
}

// newAESCFB8 constructs an encrypt or decrypt cipher.Stream keyed by secret,
// which doubles as the IV per the Minecraft protocol's encryption handshake.
func newAESCFB8(secret []byte, decrypt bool) (cipher.Stream, error) {
	block, err := aes.NewCipher(secret)
	if err != nil {
		return nil, err
	}
	return newCFB8(block, secret, decrypt), nil
}
