package vector

import (
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"strconv"
	"sync"

	"pdfqa/llm"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// Default index configuration
	defaultEFConstruction = 200
	defaultM              = 16

	// Field names in Redis hash
	fieldContent = "content"
	fieldVector  = "vector"
	fieldSource  = "source"
	fieldPage    = "page"
	fieldSeq     = "seq"
	fieldScore   = "score"
)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr           string `yaml:"addr"`
	Password       string `yaml:"password"`
	DB             int    `yaml:"db"`
	PoolSize       int    `yaml:"pool_size"`
	IndexPrefix    string `yaml:"index_prefix"`
	EFConstruction int    `yaml:"ef_construction"`
	M              int    `yaml:"m"`
}

// DefaultRedisConfig returns default Redis configuration
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:           "localhost:6379",
		PoolSize:       10,
		IndexPrefix:    "pdfqa",
		EFConstruction: defaultEFConstruction,
		M:              defaultM,
	}
}

// RedisStore implements Store using Redis with RediSearch vector search.
// Every store owns its own index and key prefix, both dropped on Close.
type RedisStore struct {
	client    *redis.Client
	indexName string
	keyPrefix string
	dim       int

	mu    sync.RWMutex
	count int
}

// NewRedisStore connects to Redis and creates a fresh HNSW index
func NewRedisStore(ctx context.Context, cfg RedisConfig, dim int) (*RedisStore, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive, got %d", dim)
	}
	if cfg.IndexPrefix == "" {
		cfg.IndexPrefix = "pdfqa"
	}
	if cfg.EFConstruction <= 0 {
		cfg.EFConstruction = defaultEFConstruction
	}
	if cfg.M <= 0 {
		cfg.M = defaultM
	}

	// RESP2 keeps FT.SEARCH replies as flat arrays
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
		Protocol: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	id := uuid.NewString()
	store := &RedisStore{
		client:    client,
		indexName: cfg.IndexPrefix + ":" + id,
		keyPrefix: cfg.IndexPrefix + ":" + id + ":",
		dim:       dim,
	}

	if err := store.createIndex(ctx, cfg); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create vector index: %w", err)
	}

	return store, nil
}

// createIndex issues
//
//	FT.CREATE <index> ON HASH PREFIX 1 <prefix>
//	  SCHEMA vector VECTOR HNSW 10 TYPE FLOAT32 DIM <dim> DISTANCE_METRIC COSINE EF_CONSTRUCTION <ef> M <m>
//	         content TEXT source TAG page NUMERIC seq NUMERIC
func (s *RedisStore) createIndex(ctx context.Context, cfg RedisConfig) error {
	return s.client.Do(ctx, "FT.CREATE", s.indexName,
		"ON", "HASH",
		"PREFIX", "1", s.keyPrefix,
		"SCHEMA",
		fieldVector, "VECTOR", "HNSW", "10",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(s.dim),
		"DISTANCE_METRIC", "COSINE",
		"EF_CONSTRUCTION", strconv.Itoa(cfg.EFConstruction),
		"M", strconv.Itoa(cfg.M),
		fieldContent, "TEXT",
		fieldSource, "TAG",
		fieldPage, "NUMERIC",
		fieldSeq, "NUMERIC",
	).Err()
}

// Index adds records to the store in a single pipeline
func (s *RedisStore) Index(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pipe := s.client.Pipeline()
	for i, rec := range records {
		if len(rec.Vector) != s.dim {
			return fmt.Errorf("record %d has dimension %d, want %d", i, len(rec.Vector), s.dim)
		}

		seq := s.count + i
		pipe.HSet(ctx, s.keyPrefix+strconv.Itoa(seq),
			fieldContent, rec.Chunk.Text,
			fieldVector, encodeVector(rec.Vector),
			fieldSource, rec.Chunk.Metadata.Source,
			fieldPage, rec.Chunk.Metadata.Page,
			fieldSeq, seq,
		)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert records: %w", err)
	}

	s.count += len(records)
	return nil
}

// Search performs a KNN query against the HNSW index
func (s *RedisStore) Search(ctx context.Context, query []float32, k int) ([]llm.Hit, error) {
	if len(query) != s.dim {
		return nil, fmt.Errorf("query has dimension %d, want %d", len(query), s.dim)
	}

	s.mu.RLock()
	count := s.count
	s.mu.RUnlock()

	if count == 0 {
		return []llm.Hit{}, nil
	}
	if k <= 0 || k > count {
		k = count
	}

	// FT.SEARCH <index> "*=>[KNN k @vector $query_vector AS score]"
	//   PARAMS 2 query_vector <bytes> SORTBY score LIMIT 0 k DIALECT 2
	queryStr := fmt.Sprintf("*=>[KNN %d @%s $query_vector AS %s]", k, fieldVector, fieldScore)

	result, err := s.client.Do(ctx, "FT.SEARCH", s.indexName, queryStr,
		"PARAMS", "2", "query_vector", encodeVector(query),
		"RETURN", "5", fieldContent, fieldSource, fieldPage, fieldSeq, fieldScore,
		"SORTBY", fieldScore,
		"LIMIT", "0", strconv.Itoa(k),
		"DIALECT", "2",
	).Result()
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	hits, err := parseSearchResults(result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}
	return hits, nil
}

// Len returns the number of indexed records
func (s *RedisStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Close drops the index together with its hashes and closes the connection
func (s *RedisStore) Close() error {
	if s.client == nil {
		return nil
	}

	ctx := context.Background()
	if err := s.client.Do(ctx, "FT.DROPINDEX", s.indexName, "DD").Err(); err != nil {
		log.Printf("[vector] failed to drop index %s: %v", s.indexName, err)
	}
	return s.client.Close()
}

// encodeVector encodes a float32 vector as the little-endian blob RediSearch expects
func encodeVector(vector []float32) []byte {
	buf := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeVector decodes a float32 vector from Redis storage
func decodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(data))
	}
	vector := make([]float32, len(data)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vector, nil
}

// parseSearchResults parses a RESP2 FT.SEARCH reply:
// [total, key1, [field, value, ...], key2, [...], ...]
func parseSearchResults(result interface{}) ([]llm.Hit, error) {
	values, ok := result.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected result format %T", result)
	}

	hits := []llm.Hit{}
	for i := 1; i+1 < len(values); i += 2 {
		fields, ok := values[i+1].([]interface{})
		if !ok {
			continue
		}
		hits = append(hits, parseHitFields(fields))
	}

	return hits, nil
}

// parseHitFields converts a field list to a hit. The KNN score is a cosine
// distance, so similarity is 1 - distance.
func parseHitFields(fields []interface{}) llm.Hit {
	var hit llm.Hit
	for i := 0; i+1 < len(fields); i += 2 {
		name, ok := fields[i].(string)
		if !ok {
			continue
		}
		value := fmt.Sprint(fields[i+1])

		switch name {
		case fieldContent:
			hit.Chunk.Text = value
		case fieldSource:
			hit.Chunk.Metadata.Source = value
		case fieldPage:
			if n, err := strconv.Atoi(value); err == nil {
				hit.Chunk.Metadata.Page = n
			}
		case fieldScore:
			if d, err := strconv.ParseFloat(value, 32); err == nil {
				hit.Score = float32(1 - d)
			}
		}
	}
	return hit
}
