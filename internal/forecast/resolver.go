package forecast

import (
	"context"

	"github.com/PrathyushaPonnala/sales-prediction/internal/artifacts"
	"github.com/PrathyushaPonnala/sales-prediction/internal/domain/model"
	"github.com/PrathyushaPonnala/sales-prediction/internal/ml"
	"github.com/PrathyushaPonnala/sales-prediction/pkg/errors"
	"github.com/PrathyushaPonnala/sales-prediction/pkg/logger"
)

// ResolvedModels holds the global model artifacts for the process lifetime.
// They are read-only after Resolve; swapping the active model is a redeploy.
type ResolvedModels struct {
	Manifest *model.Manifest
	Booster  ml.Predictor
	Encoder  *ml.ProductEncoder
}

// Close releases native resources behind the loaded model, such as the
// ONNX runtime session of the correction model. Safe on nil.
func (m *ResolvedModels) Close() {
	if m == nil {
		return
	}
	if c, ok := m.Booster.(interface{ Close() }); ok {
		c.Close()
	}
}

// Resolve loads the manifest, the correction model it names, and the
// encoder, and verifies the model honors the manifest's feature contract.
// Callers treat any error as fatal at startup; a model trained against a
// different feature set must never serve predictions.
func Resolve(ctx context.Context, store artifacts.Store) (*ResolvedModels, error) {
	log := logger.Get().With("component", "manifest_resolver")

	manifest, err := store.LoadManifest(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load model manifest")
	}
	log.Infow("Manifest loaded",
		"active_global_model", manifest.ActiveGlobalModel,
		"expected_features", manifest.GlobalModelConfig.ExpectedFeatures,
	)

	booster, err := store.LoadBooster(ctx, manifest.ActiveGlobalModel)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load correction model %q", manifest.ActiveGlobalModel)
	}

	expected := manifest.GlobalModelConfig.ExpectedFeatures
	if actual := booster.NumFeatures(); actual != expected {
		return nil, errors.NewContractViolation(expected, actual)
	}

	encoder, err := store.LoadEncoder(ctx, manifest.GlobalModelConfig.EncoderFile)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load product encoder %q", manifest.GlobalModelConfig.EncoderFile)
	}

	log.Infow("Global model resolved",
		"model", manifest.ActiveGlobalModel,
		"features", expected,
		"known_products", encoder.Len(),
	)

	return &ResolvedModels{
		Manifest: manifest,
		Booster:  booster,
		Encoder:  encoder,
	}, nil
}
