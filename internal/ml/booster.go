package ml

import (
	"sync"

	onnxruntime "github.com/yalue/onnxruntime_go"

	"github.com/PrathyushaPonnala/sales-prediction/pkg/errors"
)

// Predictor is the regression surface the forecast pipeline needs from the
// global correction model.
type Predictor interface {
	// NumFeatures reports the feature arity declared by the model input
	NumFeatures() int

	// Predict runs one batch regression over rows of feature vectors
	Predict(rows [][]float64) ([]float64, error)
}

// Booster runs the exported gradient-boosted correction model through ONNX
// Runtime. The training pipeline exports a single float32 input of shape
// [batch, features] and a float32 output of shape [batch, 1]; input and
// output names are read from the model, not assumed.
type Booster struct {
	mu          sync.Mutex
	session     *onnxruntime.DynamicAdvancedSession
	numFeatures int
}

var _ Predictor = (*Booster)(nil)

// LoadBooster loads the correction model from a local file path.
// The runtime only accepts filesystem paths, so remote artifacts must be
// staged to disk before this is called.
func LoadBooster(modelPath string) (*Booster, error) {
	// Initialize ONNX runtime environment (only once per process)
	if !onnxruntime.IsInitialized() {
		if err := onnxruntime.InitializeEnvironment(); err != nil {
			return nil, errors.Wrap(err, "failed to initialize ONNX runtime")
		}
	}

	inputs, outputs, err := onnxruntime.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read model metadata")
	}
	if len(inputs) != 1 || len(outputs) == 0 {
		return nil, errors.Newf("unsupported model signature: %d inputs, %d outputs", len(inputs), len(outputs))
	}

	// Feature arity is the last input dimension; the batch dimension is dynamic
	dims := inputs[0].Dimensions
	if len(dims) == 0 {
		return nil, errors.New("model input declares no shape")
	}
	numFeatures := int(dims[len(dims)-1])
	if numFeatures <= 0 {
		return nil, errors.Newf("model input declares no fixed feature count: %v", dims)
	}

	options, err := onnxruntime.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create session options")
	}
	defer options.Destroy()

	session, err := onnxruntime.NewDynamicAdvancedSession(modelPath,
		[]string{inputs[0].Name}, []string{outputs[0].Name}, options)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load correction model")
	}

	return &Booster{
		session:     session,
		numFeatures: numFeatures,
	}, nil
}

// NumFeatures reports the feature arity declared by the model input
func (b *Booster) NumFeatures() int {
	return b.numFeatures
}

// Predict runs one batch inference over all rows and returns one predicted
// value per row. Values stay in whatever space the model was trained in
// (log space for the correction model).
func (b *Booster) Predict(rows [][]float64) ([]float64, error) {
	if b.session == nil {
		return nil, errors.New("model session is closed")
	}
	if len(rows) == 0 {
		return nil, nil
	}

	flat := make([]float32, 0, len(rows)*b.numFeatures)
	for i, row := range rows {
		if len(row) != b.numFeatures {
			return nil, errors.Newf("row %d has %d features, model expects %d", i, len(row), b.numFeatures)
		}
		for _, v := range row {
			flat = append(flat, float32(v))
		}
	}

	inputShape := onnxruntime.NewShape(int64(len(rows)), int64(b.numFeatures))
	inputTensor, err := onnxruntime.NewTensor(inputShape, flat)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create input tensor")
	}
	defer inputTensor.Destroy()

	out := make([]float32, len(rows))
	outputShape := onnxruntime.NewShape(int64(len(rows)), 1)
	outputTensor, err := onnxruntime.NewTensor(outputShape, out)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create output tensor")
	}
	defer outputTensor.Destroy()

	// Session runs are not documented concurrent-safe
	b.mu.Lock()
	err = b.session.Run(
		[]onnxruntime.Value{inputTensor},
		[]onnxruntime.Value{outputTensor},
	)
	b.mu.Unlock()
	if err != nil {
		return nil, errors.Wrap(err, "inference failed")
	}

	preds := make([]float64, len(out))
	for i, v := range out {
		preds[i] = float64(v)
	}
	return preds, nil
}

// Close releases the ONNX session
func (b *Booster) Close() {
	if b.session != nil {
		b.session.Destroy()
		b.session = nil
	}
}
