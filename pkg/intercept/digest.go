package intercept

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"sync"

	"github.com/ib-77/chunkflow/pkg/content"
)

// DigestHook hashes every data chunk it sees.
type DigestHook struct {
	name string

	mu sync.Mutex
	h  hash.Hash
	n  int64
}

// NewDigest supports "md5", "sha1", "sha256" and "sha512"; anything else
// falls back to sha256.
func NewDigest(algorithm string) *DigestHook {
	var h hash.Hash
	switch algorithm {
	case "md5":
		h = md5.New()
	case "sha1":
		h = sha1.New()
	case "sha512":
		h = sha512.New()
	default:
		h = sha256.New()
		algorithm = "sha256"
	}
	return &DigestHook{name: algorithm, h: h}
}

func (d *DigestHook) Name() string { return d.name }

func (d *DigestHook) Hook() Hook {
	return Observe(func(c *content.Chunk) {
		if c.IsError() {
			return
		}
		d.mu.Lock()
		_, _ = d.h.Write(c.Bytes())
		d.n += int64(c.Len())
		d.mu.Unlock()
	})
}

func (d *DigestHook) Sum() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.h.Sum(nil)
}

func (d *DigestHook) HexSum() string {
	return hex.EncodeToString(d.Sum())
}

// Size is the number of payload bytes hashed so far.
func (d *DigestHook) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.n
}
