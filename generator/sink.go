package generator

import (
	"bytes"
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/8090Lambert/tree-new-bee/config"
	"github.com/8090Lambert/tree-new-bee/metrics"
	"github.com/8090Lambert/tree-new-bee/rdb"
	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Executor runs the commands of one entry as a single round trip.
type Executor interface {
	Exec(ctx context.Context, cmds [][]interface{}) error
	Close() error
}

type clientExecutor struct {
	client redis.UniversalClient
}

func (c clientExecutor) Exec(ctx context.Context, cmds [][]interface{}) error {
	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, cmd := range cmds {
			pipe.Do(ctx, cmd...)
		}
		return nil
	})
	return err
}

func (c clientExecutor) Close() error {
	return c.client.Close()
}

// Dialer opens an executor for one target address and database.
type Dialer func(addr string, db int) Executor

// Cluster endpoints only have database 0 and are reached through one client.
type ClusterDialer func(addrs []string) Executor

// RedisDialer connects standalone servers with go-redis.
func RedisDialer(password string) Dialer {
	return func(addr string, db int) Executor {
		return clientExecutor{redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		})}
	}
}

func RedisClusterDialer(password string) ClusterDialer {
	return func(addrs []string) Executor {
		return clientExecutor{redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    addrs,
			Password: password,
		})}
	}
}

// RedisSink replays entries on the target described by a config.Endpoints.
// It is safe for concurrent use by several sources.
type RedisSink struct {
	target   config.Endpoints
	replayer Replayer
	log      logrus.FieldLogger
	metrics  *metrics.Metrics
	now      func() time.Time

	dial    Dialer
	cluster Executor

	mu      sync.Mutex
	clients map[sinkConn]Executor
	warned  bool

	// ctx bounds every command; set by SetContext.
	ctx context.Context
}

type sinkConn struct {
	addr string
	db   int
}

type SinkOption func(*RedisSink)

func WithDialer(d Dialer) SinkOption {
	return func(s *RedisSink) { s.dial = d }
}

func WithClusterDialer(d ClusterDialer) SinkOption {
	return func(s *RedisSink) {
		if s.target.Kind == config.KindCluster {
			s.cluster = d(s.target.Servers)
		}
	}
}

func WithClock(now func() time.Time) SinkOption {
	return func(s *RedisSink) { s.now = now }
}

func NewRedisSink(target config.Endpoints, batchSize int, log logrus.FieldLogger, m *metrics.Metrics, opts ...SinkOption) *RedisSink {
	s := &RedisSink{
		target:   target,
		replayer: Replayer{BatchSize: batchSize},
		log:      log,
		metrics:  m,
		now:      time.Now,
		dial:     RedisDialer(target.Password),
		clients:  make(map[sinkConn]Executor),
		ctx:      context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.target.Kind == config.KindCluster && s.cluster == nil {
		s.cluster = RedisClusterDialer(target.Password)(target.Servers)
	}
	return s
}

// SetContext sets the context the sink passes to the target.
func (s *RedisSink) SetContext(ctx context.Context) {
	s.ctx = ctx
}

func (s *RedisSink) Begin(source string, version int) {
	s.log.WithFields(logrus.Fields{"source": source, "version": version}).Info("replay begin")
}

func (s *RedisSink) AuxField(key, value []byte) {
	s.log.WithField(string(key), string(value)).Debug("aux field")
}

func (s *RedisSink) Entry(e *rdb.Entry) error {
	if e.Expired(s.now()) {
		s.metrics.SkippedExpired()
		return nil
	}
	cmds, err := s.replayer.Commands(e)
	if err != nil {
		s.metrics.Error("replay")
		s.log.WithError(err).Warn("skip entry")
		return nil
	}

	exec := s.route(e)
	start := time.Now()
	err = exec.Exec(s.ctx, cmds)
	s.metrics.ObserveReplay(time.Since(start))
	if err != nil {
		s.metrics.Error("target")
		return errors.Wrapf(err, "replay key %q", e.Key)
	}
	return nil
}

func (s *RedisSink) End() error { return nil }

// Close releases every target connection.
func (s *RedisSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var first error
	for conn, c := range s.clients {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
		delete(s.clients, conn)
	}
	if s.cluster != nil {
		if err := s.cluster.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (s *RedisSink) route(e *rdb.Entry) Executor {
	if s.target.Kind == config.KindCluster {
		s.warnDB(e.DB)
		return s.cluster
	}

	conn := sinkConn{addr: s.target.Servers[0], db: int(e.DB)}
	if s.target.Kind == config.KindProxy {
		s.warnDB(e.DB)
		slot := Hash(s.target.Hash, HashTag(e.Key, s.target.HashTag)) % uint64(len(s.target.Servers))
		conn = sinkConn{addr: s.target.Servers[slot]}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[conn]
	if !ok {
		c = s.dial(conn.addr, conn.db)
		s.clients[conn] = c
	}
	return c
}

func (s *RedisSink) warnDB(db uint64) {
	if db == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.warned {
		s.warned = true
		s.log.WithField("db", db).Warnf("%s target has only db 0, keys of other dbs are merged into it", s.target.Kind)
	}
}

// HashTag returns the part of key that is hashed. With tag "{}" and key
// "user:{42}:name" that is "42"; keys without a non-empty tag hash whole.
func HashTag(key []byte, tag string) []byte {
	if len(tag) != 2 {
		return key
	}
	open := bytes.IndexByte(key, tag[0])
	if open < 0 {
		return key
	}
	end := bytes.IndexByte(key[open+1:], tag[1])
	if end <= 0 {
		return key
	}
	return key[open+1 : open+1+end]
}

// Hash hashes p with one of the config.Hash* methods, fnv1a_64 by default.
func Hash(method string, p []byte) uint64 {
	if method == config.HashXXHash {
		return xxhash.Sum64(p)
	}
	h := fnv.New64a()
	h.Write(p)
	return h.Sum64()
}
