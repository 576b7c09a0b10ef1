package generator

import (
	"math"
	"strconv"

	"github.com/8090Lambert/tree-new-bee/rdb"
	"github.com/pkg/errors"
)

const DefaultBatchSize = 512

// Replayer turns entries into the commands that recreate them on a live server.
type Replayer struct {
	// BatchSize caps the elements per RPUSH/SADD/ZADD/HSET, 0 means DefaultBatchSize.
	BatchSize int
}

// Commands returns the commands for e. Containers are deleted first so a
// rerun does not append to what an earlier run wrote. The expiry is set last.
func (r Replayer) Commands(e *rdb.Entry) ([][]interface{}, error) {
	key := string(e.Key)
	var cmds [][]interface{}

	switch v := e.Value.(type) {
	case rdb.Raw:
		cmds = append(cmds, []interface{}{"SET", key, string(v)})
	case rdb.List:
		cmds = append(cmds, []interface{}{"DEL", key})
		cmds = r.batch(cmds, "RPUSH", key, len(v), 1, func(i int) []interface{} {
			return []interface{}{string(v[i])}
		})
	case rdb.Set:
		cmds = append(cmds, []interface{}{"DEL", key})
		cmds = r.batch(cmds, "SADD", key, len(v), 1, func(i int) []interface{} {
			return []interface{}{string(v[i])}
		})
	case rdb.SortedSet:
		for _, m := range v {
			if math.IsNaN(m.Score) {
				return nil, errors.Errorf("zset %q member %q has a NaN score", e.Key, m.Member)
			}
		}
		cmds = append(cmds, []interface{}{"DEL", key})
		cmds = r.batch(cmds, "ZADD", key, len(v), 2, func(i int) []interface{} {
			return []interface{}{formatScore(v[i].Score), string(v[i].Member)}
		})
	case rdb.Hash:
		cmds = append(cmds, []interface{}{"DEL", key})
		cmds = r.batch(cmds, "HSET", key, len(v), 2, func(i int) []interface{} {
			return []interface{}{string(v[i].Field), string(v[i].Value)}
		})
	case rdb.Stream:
		cmds = append(cmds, []interface{}{"DEL", key})
		cmds = append(cmds, streamCommands(key, v)...)
	default:
		return nil, errors.Errorf("key %q: cannot replay %s values", e.Key, e.Type())
	}

	if e.Expire >= 0 {
		cmds = append(cmds, []interface{}{"PEXPIREAT", key, strconv.FormatInt(e.Expire, 10)})
	}
	return cmds, nil
}

func (r Replayer) batch(cmds [][]interface{}, name, key string, n, width int, item func(i int) []interface{}) [][]interface{} {
	size := r.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		cmd := make([]interface{}, 0, 2+(end-start)*width)
		cmd = append(cmd, name, key)
		for i := start; i < end; i++ {
			cmd = append(cmd, item(i)...)
		}
		cmds = append(cmds, cmd)
	}
	return cmds
}

// streamCommands recreates the entries, the last id and the groups of a
// stream. Pending lists and consumers are not replayed, they describe
// deliveries made by the source server.
func streamCommands(key string, v rdb.Stream) [][]interface{} {
	var cmds [][]interface{}
	for _, e := range v.Entries {
		cmd := make([]interface{}, 0, 3+2*len(e.Fields))
		cmd = append(cmd, "XADD", key, e.ID.String())
		for _, f := range e.Fields {
			cmd = append(cmd, string(f.Field), string(f.Value))
		}
		cmds = append(cmds, cmd)
	}
	switch {
	case len(v.Entries) > 0:
		cmds = append(cmds, []interface{}{"XSETID", key, v.LastID.String()})
	case v.LastID != (rdb.StreamID{}):
		// MAXLEN 0 trims the placeholder right away and keeps the last id.
		cmds = append(cmds, []interface{}{"XADD", key, "MAXLEN", "0", v.LastID.String(), "", ""})
	}
	for _, g := range v.Groups {
		cmds = append(cmds, []interface{}{"XGROUP", "CREATE", key, string(g.Name), g.LastID.String(), "MKSTREAM"})
	}
	return cmds
}
