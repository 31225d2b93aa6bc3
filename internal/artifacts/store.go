// Package artifacts loads and saves model artifacts against pluggable
// storage backends. Global artifacts (manifest, correction model binary,
// product encoder) resolve through an ordered candidate list: the
// model-category folder first, then the flat legacy layout.
package artifacts

import (
	"context"
	"encoding/json"
	"net/url"
	"path"
	"strings"

	"github.com/PrathyushaPonnala/sales-prediction/internal/adapters/config"
	"github.com/PrathyushaPonnala/sales-prediction/internal/domain/model"
	"github.com/PrathyushaPonnala/sales-prediction/internal/ml"
	"github.com/PrathyushaPonnala/sales-prediction/internal/ml/trend"
	"github.com/PrathyushaPonnala/sales-prediction/pkg/errors"
)

const (
	// ManifestName is the manifest artifact file name
	ManifestName = "model_manifest.json"

	// globalPrefix namespaces global model artifacts
	globalPrefix = "global"

	// trendPrefix namespaces per-product trend model artifacts
	trendPrefix = "trend"
)

// Store defines the interface for model artifact access
type Store interface {
	// LoadManifest loads and validates the model manifest
	LoadManifest(ctx context.Context) (*model.Manifest, error)

	// LoadBooster loads the named correction model binary, staging it to a
	// local file when the backend is remote
	LoadBooster(ctx context.Context, name string) (ml.Predictor, error)

	// LoadEncoder loads the named product encoder artifact
	LoadEncoder(ctx context.Context, name string) (*ml.ProductEncoder, error)

	// LoadTrendModel loads a per-product trend model.
	// An absent artifact returns (nil, nil): create a fresh model.
	LoadTrendModel(ctx context.Context, productID string) (*trend.Model, error)

	// SaveTrendModel serializes and stores a per-product trend model,
	// overwriting any previous artifact
	SaveTrendModel(ctx context.Context, m *trend.Model, productID string) error
}

// New selects the storage backend from configuration
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocalStore(cfg.LocalDir), nil
	case "azure":
		return NewBlobStore(ctx, cfg.AzureConnStr, cfg.AzureContainer)
	default:
		return nil, errors.Wrapf(errors.ErrInvalidInput, "unknown storage backend %q", cfg.Backend)
	}
}

// globalCandidates lists the keys probed for a global artifact, in order
func globalCandidates(name string) []string {
	return []string{path.Join(globalPrefix, name), name}
}

// trendKey builds the deterministic per-product model key. Product IDs are
// path-escaped so arbitrary identifiers stay inside the artifact tree.
func trendKey(productID string) string {
	return path.Join(trendPrefix, url.PathEscape(productID)+".json")
}

// readFunc reads one key and reports whether it exists
type readFunc func(ctx context.Context, key string) (data []byte, found bool, err error)

// readFirst probes candidate keys in order. Not-found moves to the next
// candidate; any other failure stops the probe. When every candidate is
// missing the returned error names all probed locations.
func readFirst(ctx context.Context, read readFunc, keys []string) ([]byte, string, error) {
	for _, key := range keys {
		data, found, err := read(ctx, key)
		if err != nil {
			return nil, key, err
		}
		if found {
			return data, key, nil
		}
	}
	return nil, "", errors.Wrapf(errors.ErrNotFound, "artifact not found at %s", strings.Join(keys, " or "))
}

// decodeManifest parses and validates a manifest payload
func decodeManifest(data []byte, key string) (*model.Manifest, error) {
	var m model.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.NewStorageError("decode", key, err)
	}
	if err := m.Validate(); err != nil {
		return nil, errors.NewStorageError("decode", key, err)
	}
	return &m, nil
}

// decodeEncoder parses a product encoder payload
func decodeEncoder(data []byte, key string) (*ml.ProductEncoder, error) {
	encoder, err := ml.ParseProductEncoder(data)
	if err != nil {
		return nil, errors.NewStorageError("decode", key, err)
	}
	return encoder, nil
}

// decodeTrendModel parses a per-product trend model payload
func decodeTrendModel(data []byte, key string) (*trend.Model, error) {
	var m trend.Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.NewStorageError("decode", key, err)
	}
	return &m, nil
}

// encodeTrendModel serializes a trend model for storage
func encodeTrendModel(m *trend.Model, key string) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, errors.NewStorageError("encode", key, err)
	}
	return data, nil
}
