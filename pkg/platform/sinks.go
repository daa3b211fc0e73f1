package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Sternrassler/recipe-scraper/pkg/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultResultTTL is the lifetime of a result stored by RedisSink.
const DefaultResultTTL = time.Hour

// encodeResult renders recipes as an indented JSON array; nil encodes as [].
func encodeResult(recipes []domain.Recipe) ([]byte, error) {
	if recipes == nil {
		recipes = []domain.Recipe{}
	}
	data, err := json.MarshalIndent(recipes, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return append(data, '\n'), nil
}

// WriterSink writes the result to W.
type WriterSink struct {
	W io.Writer
}

// WriteResult implements service.ResultSink.
func (s WriterSink) WriteResult(ctx context.Context, recipes []domain.Recipe) error {
	data, err := encodeResult(recipes)
	if err != nil {
		return err
	}
	if _, err := s.W.Write(data); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

// FileSink writes the result to Path. The file is replaced atomically.
type FileSink struct {
	Path string
}

// WriteResult implements service.ResultSink.
func (s FileSink) WriteResult(ctx context.Context, recipes []domain.Recipe) error {
	data, err := encodeResult(recipes)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.Path), ".result-*.json")
	if err != nil {
		return fmt.Errorf("create result file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write result file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close result file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("replace result file: %w", err)
	}
	return nil
}

// RedisSink stores the result as JSON under Key.
type RedisSink struct {
	Client *redis.Client
	Key    string
	// TTL defaults to DefaultResultTTL.
	TTL time.Duration
}

// WriteResult implements service.ResultSink.
func (s RedisSink) WriteResult(ctx context.Context, recipes []domain.Recipe) error {
	if s.Client == nil {
		return fmt.Errorf("redis client cannot be nil")
	}
	if s.Key == "" {
		return fmt.Errorf("result key cannot be empty")
	}

	data, err := encodeResult(recipes)
	if err != nil {
		return err
	}

	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultResultTTL
	}
	if err := s.Client.Set(ctx, s.Key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set result: %w", err)
	}
	return nil
}

// ReadResult loads a result stored by WriteResult.
func (s RedisSink) ReadResult(ctx context.Context) ([]domain.Recipe, error) {
	data, err := s.Client.Get(ctx, s.Key).Bytes()
	if err != nil {
		return nil, fmt.Errorf("redis get result: %w", err)
	}

	var recipes []domain.Recipe
	if err := json.Unmarshal(data, &recipes); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return recipes, nil
}

// Sink is implemented by every result sink of this package.
type Sink interface {
	WriteResult(ctx context.Context, recipes []domain.Recipe) error
}

// MultiSink hands the result to every sink and returns the first error.
type MultiSink []Sink

// WriteResult implements service.ResultSink.
func (m MultiSink) WriteResult(ctx context.Context, recipes []domain.Recipe) error {
	var first error
	for _, s := range m {
		if err := s.WriteResult(ctx, recipes); err != nil && first == nil {
			first = err
		}
	}
	return first
}
