package artifacts

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/PrathyushaPonnala/sales-prediction/internal/ml"
	"github.com/PrathyushaPonnala/sales-prediction/internal/ml/trend"
	"github.com/PrathyushaPonnala/sales-prediction/internal/domain/model"
	"github.com/PrathyushaPonnala/sales-prediction/pkg/errors"
)

// Compile-time check that we implement the interface
var _ Store = (*LocalStore)(nil)

// LocalStore reads and writes artifacts under a directory on disk
type LocalStore struct {
	baseDir string
}

// NewLocalStore creates a local filesystem store rooted at dir
func NewLocalStore(dir string) *LocalStore {
	if dir == "" {
		dir = "./ml_bin"
	}
	return &LocalStore{baseDir: dir}
}

// filePath maps a storage key to a filesystem path
func (s *LocalStore) filePath(key string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(key))
}

// read implements the candidate probe for local files
func (s *LocalStore) read(_ context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.filePath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errors.NewStorageError("read", key, err)
	}
	return data, true, nil
}

// LoadManifest loads and validates the model manifest
func (s *LocalStore) LoadManifest(ctx context.Context) (*model.Manifest, error) {
	data, key, err := readFirst(ctx, s.read, globalCandidates(ManifestName))
	if err != nil {
		return nil, err
	}
	return decodeManifest(data, key)
}

// LoadBooster loads the named correction model binary. The runtime needs a
// filesystem path, so existence is probed before any model loading happens.
func (s *LocalStore) LoadBooster(_ context.Context, name string) (ml.Predictor, error) {
	candidates := globalCandidates(name)
	for _, key := range candidates {
		p := s.filePath(key)
		if _, err := os.Stat(p); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.NewStorageError("stat", key, err)
		}
		booster, err := ml.LoadBooster(p)
		if err != nil {
			return nil, errors.NewStorageError("load", key, err)
		}
		return booster, nil
	}
	return nil, errors.Wrapf(errors.ErrNotFound, "model binary not found at %s", strings.Join(candidates, " or "))
}

// LoadEncoder loads the named product encoder artifact
func (s *LocalStore) LoadEncoder(ctx context.Context, name string) (*ml.ProductEncoder, error) {
	data, key, err := readFirst(ctx, s.read, globalCandidates(name))
	if err != nil {
		return nil, err
	}
	return decodeEncoder(data, key)
}

// LoadTrendModel loads a per-product trend model, or (nil, nil) when the
// product has no stored model yet.
func (s *LocalStore) LoadTrendModel(ctx context.Context, productID string) (*trend.Model, error) {
	key := trendKey(productID)
	data, found, err := s.read(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return decodeTrendModel(data, key)
}

// SaveTrendModel writes a per-product trend model, creating intermediate
// directories as needed and overwriting any previous artifact.
func (s *LocalStore) SaveTrendModel(_ context.Context, m *trend.Model, productID string) error {
	key := trendKey(productID)
	data, err := encodeTrendModel(m, key)
	if err != nil {
		return err
	}

	p := s.filePath(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.NewStorageError("mkdir", key, err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return errors.NewStorageError("write", key, err)
	}
	return nil
}
