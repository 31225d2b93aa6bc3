package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/PrathyushaPonnala/sales-prediction/pkg/errors"
)

// Manifest names the active global correction model and its contract.
// It is the single source of truth for which artifacts the service loads.
type Manifest struct {
	ActiveGlobalModel string             `json:"active_global_model"`
	GlobalModelConfig GlobalModelContract `json:"global_model_config"`
}

// GlobalModelContract is the portion of the manifest the service must verify
type GlobalModelContract struct {
	ExpectedFeatures int    `json:"expected_features"`
	EncoderFile      string `json:"encoder_file"`
}

// Validate checks the manifest carries every required key.
// Unknown keys are ignored at decode time.
func (m *Manifest) Validate() error {
	if m.ActiveGlobalModel == "" {
		return errors.Wrap(errors.ErrInvalidInput, "manifest missing active_global_model")
	}
	if m.GlobalModelConfig.ExpectedFeatures <= 0 {
		return errors.Wrap(errors.ErrInvalidInput, "manifest missing global_model_config.expected_features")
	}
	if m.GlobalModelConfig.EncoderFile == "" {
		return errors.Wrap(errors.ErrInvalidInput, "manifest missing global_model_config.encoder_file")
	}
	return nil
}

// Metric is one quality record from a global model training run
type Metric struct {
	ID              uuid.UUID `db:"id"`
	ModelVersion    string    `db:"model_version"`
	WMAPE           float64   `db:"wmape"`
	Accuracy        float64   `db:"accuracy"`
	RMSE            float64   `db:"rmse"`
	TrainingRunDate time.Time `db:"training_run_date"`
	Description     string    `db:"description"`
}
