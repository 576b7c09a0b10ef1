package generator

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/8090Lambert/tree-new-bee/protocol"
	"github.com/8090Lambert/tree-new-bee/rdb"
	"github.com/fatih/color"
)

var units = map[protocol.DataType]string{
	protocol.String:    "bytes",
	protocol.Hash:      "fields",
	protocol.List:      "items",
	protocol.SortedSet: "members",
	protocol.Set:       "members",
	protocol.Stream:    "entries",
}

type biggest struct {
	key  string
	size uint64
}

type gather struct {
	count uint64
	size  uint64
}

// Summary finds the biggest key of each data type, like redis-cli --bigkeys
// does on a live server. Strings are measured in bytes, containers in elements.
type Summary struct {
	KeysCount uint64
	KeysSize  uint64

	mu      sync.Mutex
	biggest map[protocol.DataType]biggest
	gather  map[protocol.DataType]gather
}

func NewSummary() *Summary {
	return &Summary{
		biggest: make(map[protocol.DataType]biggest),
		gather:  make(map[protocol.DataType]gather),
	}
}

func (s *Summary) Begin(source string, version int) {}

func (s *Summary) AuxField(key, value []byte) {}

func (s *Summary) Entry(e *rdb.Entry) error {
	t := e.Type()
	size := uint64(e.Value.Len())
	if t == protocol.String {
		size = e.Value.ConcreteSize()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.KeysCount++
	s.KeysSize += uint64(len(e.Key))
	if b, ok := s.biggest[t]; !ok || size > b.size {
		s.biggest[t] = biggest{key: string(e.Key), size: size}
	}
	g := s.gather[t]
	g.count++
	g.size += size
	s.gather[t] = g
	return nil
}

func (s *Summary) End() error { return nil }

// Biggest returns the biggest key of a type and its size.
func (s *Summary) Biggest(t protocol.DataType) (string, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.biggest[t]
	return b.key, b.size, ok
}

// Render writes the report to w.
func (s *Summary) Render(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	title := color.New(color.FgCyan, color.Bold)
	title.Fprint(w, "# Scanning the rdb file to find biggest keys"+CRLF+CRLF)
	title.Fprint(w, "-------- summary -------"+CRLF+CRLF)
	fmt.Fprintf(w, "Sampled %s keys in the keyspace!"+CRLF, color.GreenString("%d", s.KeysCount))
	fmt.Fprintf(w, "Total key length in bytes is %s"+CRLF+CRLF, color.GreenString("%d", s.KeysSize))

	for _, t := range protocol.Values {
		if b, ok := s.biggest[t]; ok {
			fmt.Fprintf(w, "Biggest %6s found '%s' has %s %s"+CRLF, strings.ToLower(string(t)), color.YellowString(b.key), color.GreenString("%d", b.size), units[t])
		}
	}
	fmt.Fprint(w, CRLF)

	for _, t := range protocol.Values {
		if g, ok := s.gather[t]; ok {
			fmt.Fprintf(w, "%d %s with %d %s"+CRLF, g.count, strings.ToLower(string(t)), g.size, units[t])
		}
	}
}
