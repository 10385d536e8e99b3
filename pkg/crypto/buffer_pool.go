// Package crypto implements cryptographic primitives for QSFS.
//
// This file (buffer_pool.go) provides buffer pooling to reduce allocations
// during chunk encryption/decryption. Size classes are scaled to QSFS's
// streaming chunk sizes (default 1 MiB, ceiling constants.MaxChunkSize).
package crypto

import (
	"sync"

	"github.com/quantum-shield/qsfs-go/internal/constants"
)

// BufferPool provides pooled byte slices for cryptographic operations.
type BufferPool struct {
	// Nonce buffers (12 bytes for AES-GCM, AES-GCM-SIV, and ChaCha20-Poly1305)
	nonce sync.Pool

	// Small chunk buffers (up to 64KB)
	small sync.Pool

	// Medium chunk buffers (up to constants.DefaultChunkSize, 1 MiB)
	medium sync.Pool

	// Large chunk buffers (up to constants.MaxChunkSize, 4 MiB)
	large sync.Pool
}

// Buffer size class thresholds for crypto operations.
const (
	nonceBufferSize       = constants.AESNonceSize // 12 bytes
	smallCryptoBufferSize = 64*1024 + constants.AESNonceSize + constants.AESTagSize
	mediumCryptoBufferSize = constants.DefaultChunkSize + constants.AESNonceSize + constants.AESTagSize
	largeCryptoBufferSize  = constants.MaxChunkSize + constants.AESNonceSize + constants.AESTagSize
)

// globalCryptoPool is the default crypto buffer pool instance.
var globalCryptoPool = NewBufferPool()

// NewBufferPool creates a new crypto buffer pool.
func NewBufferPool() *BufferPool {
	return &BufferPool{
		nonce: sync.Pool{
			New: func() any {
				buf := make([]byte, nonceBufferSize)
				return &buf
			},
		},
		small: sync.Pool{
			New: func() any {
				buf := make([]byte, smallCryptoBufferSize)
				return &buf
			},
		},
		medium: sync.Pool{
			New: func() any {
				buf := make([]byte, mediumCryptoBufferSize)
				return &buf
			},
		},
		large: sync.Pool{
			New: func() any {
				buf := make([]byte, largeCryptoBufferSize)
				return &buf
			},
		},
	}
}

// GetNonce returns a zeroed nonce buffer from the pool.
func (p *BufferPool) GetNonce() []byte {
	bufPtr := p.nonce.Get().(*[]byte)
	buf := *bufPtr
	for i := range buf {
		buf[i] = 0
	}
	return buf
}

// PutNonce returns a nonce buffer to the pool.
func (p *BufferPool) PutNonce(buf []byte) {
	if buf == nil || cap(buf) != nonceBufferSize {
		return
	}
	for i := range buf[:cap(buf)] {
		buf[i] = 0
	}
	buf = buf[:cap(buf)]
	p.nonce.Put(&buf)
}

// GetCiphertext returns a chunk buffer of at least the requested size.
func (p *BufferPool) GetCiphertext(size int) []byte {
	if size <= 0 {
		return nil
	}

	var bufPtr *[]byte

	switch {
	case size <= smallCryptoBufferSize:
		bufPtr = p.small.Get().(*[]byte)
	case size <= mediumCryptoBufferSize:
		bufPtr = p.medium.Get().(*[]byte)
	case size <= largeCryptoBufferSize:
		bufPtr = p.large.Get().(*[]byte)
	default:
		// Larger than constants.MaxChunkSize should never happen; allocate directly.
		return make([]byte, size)
	}

	return (*bufPtr)[:size]
}

// PutCiphertext returns a chunk buffer to the pool, zeroing it first since it
// may have carried decrypted plaintext or key material.
func (p *BufferPool) PutCiphertext(buf []byte) {
	if buf == nil {
		return
	}

	bufCap := cap(buf)
	if bufCap == 0 {
		return
	}

	buf = buf[:bufCap]
	for i := range buf {
		buf[i] = 0
	}

	bufPtr := &buf

	switch bufCap {
	case smallCryptoBufferSize:
		p.small.Put(bufPtr)
	case mediumCryptoBufferSize:
		p.medium.Put(bufPtr)
	case largeCryptoBufferSize:
		p.large.Put(bufPtr)
	// Non-standard sizes are not returned to the pool.
	}
}

// GetCryptoBuffer returns a buffer from the global crypto pool.
func GetCryptoBuffer(size int) []byte {
	return globalCryptoPool.GetCiphertext(size)
}

// PutCryptoBuffer returns a buffer to the global crypto pool.
func PutCryptoBuffer(buf []byte) {
	globalCryptoPool.PutCiphertext(buf)
}

// GetNonceBuffer returns a nonce buffer from the global pool.
func GetNonceBuffer() []byte {
	return globalCryptoPool.GetNonce()
}

// PutNonceBuffer returns a nonce buffer to the global pool.
func PutNonceBuffer(buf []byte) {
	globalCryptoPool.PutNonce(buf)
}

// SealPooled encrypts plaintext under the given deterministic nonce and
// copies the ciphertext into a buffer from the global pool, sized by the
// ciphertext length. The caller must call PutCryptoBuffer on the returned
// slice when done with it.
func (a *AEAD) SealPooled(nonce, plaintext, additionalData []byte) ([]byte, error) {
	if len(nonce) != a.NonceSize() {
		return nil, errInvalidPooledNonce
	}

	ciphertext, err := a.Seal(nonce, plaintext, additionalData)
	if err != nil {
		return nil, err
	}

	pooled := GetCryptoBuffer(len(ciphertext))
	copy(pooled, ciphertext)
	return pooled, nil
}

var errInvalidPooledNonce = &nonceSizeError{}

type nonceSizeError struct{}

func (e *nonceSizeError) Error() string {
	return "aead: nonce has wrong size for this suite"
}
