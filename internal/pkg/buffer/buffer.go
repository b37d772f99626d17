package buffer

import (
	"sync"
)

// Size of the buffers handed out by Get.
const Size = 32 * 1024

var pool = sync.Pool{
	New: func() any {
		b := make([]byte, Size)
		return &b
	},
}

// Get returns a pooled buffer of Size bytes. Return it with Put.
func Get() *[]byte {
	return pool.Get().(*[]byte)
}

func Put(b *[]byte) {
	if b == nil || cap(*b) < Size {
		return
	}
	*b = (*b)[:Size]
	pool.Put(b)
}
