package dlock

import (
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
)

// Token proves lock ownership. It is created per acquire and must be
// passed back to Unlock.
type Token string

var hostname = sync.OnceValue(func() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
})

// NewToken returns a token unique across hosts, processes and acquires.
func NewToken() Token {
	return Token(fmt.Sprintf("%s:%d:%s", hostname(), os.Getpid(), uuid.NewString()))
}
