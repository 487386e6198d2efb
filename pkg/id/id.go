package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator hands out ULIDs that sort by the time they were issued.
// IDs issued within the same millisecond stay lexicographically increasing.
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
}

// NewGenerator returns a generator seeded with seed. A zero seed is
// replaced with one read from crypto/rand.
func NewGenerator(seed int64) *Generator {
	if seed == 0 {
		_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{entropy: ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)}
}

// At returns a ULID string stamped with t.
func (g *Generator) At(t time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(t.UTC()), g.entropy)
	if err != nil {
		// Only happens when entropy is exhausted inside one millisecond.
		panic(err)
	}
	return id.String()
}

var std = NewGenerator(0)

// New returns a ULID stamped with the current time.
func New() string {
	return std.At(time.Now())
}

// At returns a ULID stamped with t from the package generator.
func At(t time.Time) string {
	return std.At(t)
}

// Time extracts the timestamp embedded in a ULID string.
func Time(s string) (time.Time, error) {
	u, err := ulid.ParseStrict(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(u.Time()).UTC(), nil
}
