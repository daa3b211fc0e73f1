package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sternrassler/recipe-scraper/pkg/domain"
	"gopkg.in/yaml.v3"
)

// ErrNotAnObject is returned when the argument is not a JSON or YAML object.
var ErrNotAnObject = errors.New("argument must be an object")

// JSONArgument is a raw JSON object such as {"name":"pasta","page":2}.
type JSONArgument string

// ReadArguments implements service.ArgumentSource. An empty argument reads
// as an empty object.
func (a JSONArgument) ReadArguments(ctx context.Context) (domain.Fields, error) {
	if strings.TrimSpace(string(a)) == "" {
		return domain.Fields{}, nil
	}
	return decodeJSON([]byte(a))
}

// FileArgument reads the argument object from a file. Files ending in .yaml
// or .yml are parsed as YAML, everything else as JSON.
type FileArgument struct {
	Path string
}

// ReadArguments implements service.ArgumentSource.
func (a FileArgument) ReadArguments(ctx context.Context) (domain.Fields, error) {
	data, err := os.ReadFile(a.Path)
	if err != nil {
		return nil, fmt.Errorf("read argument file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(a.Path)) {
	case ".yaml", ".yml":
		return decodeYAML(data)
	default:
		return decodeJSON(data)
	}
}

// decodeJSON keeps numbers as json.Number so integer checks see the literal.
func decodeJSON(data []byte) (domain.Fields, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode json argument: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("decode json argument: trailing data")
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotAnObject
	}
	return domain.Fields(obj), nil
}

func decodeYAML(data []byte) (domain.Fields, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode yaml argument: %w", err)
	}
	if v == nil {
		return domain.Fields{}, nil
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotAnObject
	}
	return domain.Fields(obj), nil
}
