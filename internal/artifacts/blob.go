package artifacts

import (
	"context"
	"io"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/PrathyushaPonnala/sales-prediction/internal/ml"
	"github.com/PrathyushaPonnala/sales-prediction/internal/ml/trend"
	"github.com/PrathyushaPonnala/sales-prediction/internal/domain/model"
	"github.com/PrathyushaPonnala/sales-prediction/pkg/errors"
)

// Compile-time check that we implement the interface
var _ Store = (*BlobStore)(nil)

// BlobStore reads and writes artifacts in an Azure Blob container
type BlobStore struct {
	client    *azblob.Client
	container string
}

// NewBlobStore creates a blob store from a connection string, ensuring the
// container exists.
func NewBlobStore(ctx context.Context, connStr, container string) (*BlobStore, error) {
	if connStr == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "azure storage connection string is empty")
	}
	if container == "" {
		container = "models"
	}

	client, err := azblob.NewClientFromConnectionString(connStr, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create blob client")
	}

	if _, err := client.CreateContainer(ctx, container, nil); err != nil {
		if !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			return nil, errors.Wrap(err, "failed to ensure blob container")
		}
	}

	return &BlobStore{client: client, container: container}, nil
}

// read implements the candidate probe for blobs
func (s *BlobStore) read(ctx context.Context, key string) ([]byte, bool, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, key, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, false, nil
		}
		return nil, false, errors.NewStorageError("download", key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, errors.NewStorageError("download", key, err)
	}
	return data, true, nil
}

// LoadManifest loads and validates the model manifest
func (s *BlobStore) LoadManifest(ctx context.Context) (*model.Manifest, error) {
	data, key, err := readFirst(ctx, s.read, globalCandidates(ManifestName))
	if err != nil {
		return nil, err
	}
	return decodeManifest(data, key)
}

// LoadBooster downloads the named correction model binary and stages it to
// a temporary file for the runtime, which only accepts filesystem paths.
// The session holds the loaded graph, so the staged file is removed after.
func (s *BlobStore) LoadBooster(ctx context.Context, name string) (ml.Predictor, error) {
	data, key, err := readFirst(ctx, s.read, globalCandidates(name))
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp("", "correction-model-*.onnx")
	if err != nil {
		return nil, errors.NewStorageError("stage", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, errors.NewStorageError("stage", key, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, errors.NewStorageError("stage", key, err)
	}

	booster, err := ml.LoadBooster(tmp.Name())
	if err != nil {
		return nil, errors.NewStorageError("load", key, err)
	}
	return booster, nil
}

// LoadEncoder loads the named product encoder artifact
func (s *BlobStore) LoadEncoder(ctx context.Context, name string) (*ml.ProductEncoder, error) {
	data, key, err := readFirst(ctx, s.read, globalCandidates(name))
	if err != nil {
		return nil, err
	}
	return decodeEncoder(data, key)
}

// LoadTrendModel loads a per-product trend model, or (nil, nil) when the
// product has no stored model yet.
func (s *BlobStore) LoadTrendModel(ctx context.Context, productID string) (*trend.Model, error) {
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

// SaveTrendModel uploads a per-product trend model, overwriting any
// previous artifact.
func (s *BlobStore) SaveTrendModel(ctx context.Context, m *trend.Model, productID string) error {
	key := trendKey(productID)
	data, err := encodeTrendModel(m, key)
	if err != nil {
		return err
	}

	if _, err := s.client.UploadBuffer(ctx, s.container, key, data, nil); err != nil {
		return errors.NewStorageError("upload", key, err)
	}
	return nil
}
