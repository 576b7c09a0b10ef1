package generator

import (
	"encoding/base64"
	"encoding/json"
	"runtime"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/8090Lambert/tree-new-bee/rdb"
	"github.com/pkg/errors"
)

var (
	CRLF string
)

func init() {
	if runtime.GOOS == `windows` {
		CRLF = "\r\n"
	} else {
		CRLF = "\n"
	}
}

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatCSV:
		return Format(s), nil
	case "":
		return FormatCSV, nil
	}
	return "", errors.Errorf("unknown format %q, support type: json, csv", s)
}

// Extension returns the file suffix for the format, dot included.
func (f Format) Extension() string {
	return "." + string(f)
}

// text is a redis string on its way to json. Valid UTF-8 is written as a
// json string; anything else as {"base64": "..."} so no byte is lost.
type text []byte

func (t text) MarshalJSON() ([]byte, error) {
	if utf8.Valid(t) {
		return json.Marshal(string(t))
	}
	return json.Marshal(struct {
		Base64 string `json:"base64"`
	}{base64.StdEncoding.EncodeToString(t)})
}

type member struct {
	Member text   `json:"member"`
	Score  string `json:"score"`
}

type field struct {
	Field text `json:"field"`
	Value text `json:"value"`
}

type streamEntry struct {
	ID     string  `json:"id"`
	Fields []field `json:"fields"`
}

type streamNACK struct {
	ID            string `json:"id"`
	DeliveryTime  int64  `json:"delivery_time"`
	DeliveryCount uint64 `json:"delivery_count"`
}

type streamConsumer struct {
	Name     text     `json:"name"`
	SeenTime int64    `json:"seen_time"`
	Pending  []string `json:"pending,omitempty"`
}

type streamGroup struct {
	Name      text             `json:"name"`
	LastID    string           `json:"last_id"`
	Pending   []streamNACK     `json:"pending,omitempty"`
	Consumers []streamConsumer `json:"consumers,omitempty"`
}

type stream struct {
	Entries []streamEntry `json:"entries"`
	Length  uint64        `json:"length"`
	LastID  string        `json:"last_id"`
	Groups  []streamGroup `json:"groups,omitempty"`
}

// plain turns a value into something encoding/json can write. Scores are
// kept as text because JSON has no inf or nan.
func plain(v rdb.Value) interface{} {
	switch v := v.(type) {
	case rdb.Raw:
		return text(v)
	case rdb.List:
		return strs(v)
	case rdb.Set:
		return strs(v)
	case rdb.SortedSet:
		out := make([]member, len(v))
		for i, e := range v {
			out[i] = member{Member: e.Member, Score: formatScore(e.Score)}
		}
		return out
	case rdb.Hash:
		out := make([]field, len(v))
		for i, e := range v {
			out[i] = field{Field: e.Field, Value: e.Value}
		}
		return out
	case rdb.Stream:
		return plainStream(v)
	}
	return nil
}

func plainStream(v rdb.Stream) stream {
	out := stream{Entries: make([]streamEntry, len(v.Entries)), Length: v.Length, LastID: v.LastID.String()}
	for i, e := range v.Entries {
		fields := make([]field, len(e.Fields))
		for j, f := range e.Fields {
			fields[j] = field{Field: f.Field, Value: f.Value}
		}
		out.Entries[i] = streamEntry{ID: e.ID.String(), Fields: fields}
	}
	for _, g := range v.Groups {
		group := streamGroup{Name: g.Name, LastID: g.LastID.String()}
		for _, p := range g.Pending {
			group.Pending = append(group.Pending, streamNACK{ID: p.ID.String(), DeliveryTime: p.DeliveryTime, DeliveryCount: p.DeliveryCount})
		}
		for _, c := range g.Consumers {
			consumer := streamConsumer{Name: c.Name, SeenTime: c.SeenTime}
			for _, id := range c.Pending {
				consumer.Pending = append(consumer.Pending, id.String())
			}
			group.Consumers = append(group.Consumers, consumer)
		}
		out.Groups = append(out.Groups, group)
	}
	return out
}

func strs(items [][]byte) []text {
	out := make([]text, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

// formatScore writes a score the way ZADD accepts it.
func formatScore(f float64) string {
	switch s := strconv.FormatFloat(f, 'g', -1, 64); s {
	case "+Inf":
		return "+inf"
	case "-Inf":
		return "-inf"
	case "NaN":
		return "nan"
	default:
		return s
	}
}

func expireText(e *rdb.Entry) string {
	if at, ok := e.ExpireAt(); ok {
		return at.Format(time.RFC3339Nano)
	}
	return ""
}
