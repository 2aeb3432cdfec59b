package embedding

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/guestradar/guestradar/internal/config"
)

const (
	// BGEModelVersion is the version string for bge-small-en-v1.5.
	BGEModelVersion = "bge-v1.5"
	// BGEModelName is the human-readable name for bge-small-en-v1.5.
	BGEModelName = "bge-small-en-v1.5"

	// BGEEmbeddingDim is the dimension of embeddings produced by the model.
	BGEEmbeddingDim = 384

	// MaxSequenceLength is the maximum token sequence length for the model.
	MaxSequenceLength = 512

	modelFileName     = "model.onnx"
	tokenizerFileName = "tokenizer.json"
)

// onnxModel runs a local sentence-embedding model through ONNX runtime.
// Model files live in the configured model directory; they are fetched out
// of band, not bundled with the binary.
type onnxModel struct {
	tk      *tokenizer.Tokenizer
	session *ort.DynamicAdvancedSession
	mu      sync.Mutex
}

var _ Model = (*onnxModel)(nil)

func init() {
	RegisterModel(ModelMetadata{
		Name:        BGEModelName,
		Version:     BGEModelVersion,
		Dimensions:  BGEEmbeddingDim,
		Description: "Local ONNX sentence-embedding model",
		Default:     true,
	}, newONNXModel)
}

func newONNXModel() (Model, error) {
	modelDir := config.Get().ModelDir

	modelPath := filepath.Join(modelDir, modelFileName)
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file %s: %w", modelPath, err)
	}

	if libPath := onnxRuntimeLibPath(modelDir); libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("initialize ONNX runtime: %w", err)
	}

	tokenizerData, err := os.ReadFile(filepath.Join(modelDir, tokenizerFileName))
	if err != nil {
		return nil, fmt.Errorf("read tokenizer: %w", err)
	}
	tk, err := pretrained.FromReader(bytes.NewReader(tokenizerData))
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"}, nil)
	if err != nil {
		return nil, fmt.Errorf("create ONNX session: %w", err)
	}

	return &onnxModel{tk: tk, session: session}, nil
}

// onnxRuntimeLibPath locates the ONNX runtime shared library. The
// ORT_SHARED_LIB env var wins; otherwise the model directory is searched.
// Empty result means the onnxruntime_go default lookup applies.
func onnxRuntimeLibPath(modelDir string) string {
	if p := os.Getenv("ORT_SHARED_LIB"); p != "" {
		return p
	}
	entries, err := os.ReadDir(modelDir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "libonnxruntime") || strings.HasPrefix(name, "onnxruntime") {
			if strings.HasSuffix(name, ".so") || strings.HasSuffix(name, ".dylib") || strings.HasSuffix(name, ".dll") {
				return filepath.Join(modelDir, name)
			}
		}
	}
	return ""
}

func (m *onnxModel) Name() string    { return BGEModelName }
func (m *onnxModel) Version() string { return BGEModelVersion }
func (m *onnxModel) Dimensions() int { return BGEEmbeddingDim }

// Embed generates an embedding for a single text.
func (m *onnxModel) Embed(text string) ([]float32, error) {
	results, err := m.EmbedBatch([]string{text})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return make([]float32, BGEEmbeddingDim), nil
	}
	return results[0], nil
}

// EmbedBatch generates embeddings for multiple texts. Empty texts map to
// zero vectors; the Service layer rejects them before they get here.
func (m *onnxModel) EmbedBatch(texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	nonEmpty := make([]string, 0, len(texts))
	indices := make([]int, 0, len(texts))
	for i, t := range texts {
		if t != "" {
			nonEmpty = append(nonEmpty, t)
			indices = append(indices, i)
		}
	}

	results := make([][]float32, len(texts))
	for i := range results {
		results[i] = make([]float32, BGEEmbeddingDim)
	}
	if len(nonEmpty) == 0 {
		return results, nil
	}

	embeddings, err := m.computeBatch(nonEmpty)
	if err != nil {
		return nil, fmt.Errorf("compute batch embeddings: %w", err)
	}
	for i, idx := range indices {
		results[idx] = embeddings[i]
	}
	return results, nil
}

// computeBatch runs inference on a batch of texts. Must be called with the
// lock held.
func (m *onnxModel) computeBatch(sentences []string) ([][]float32, error) {
	inputBatch := make([]tokenizer.EncodeInput, len(sentences))
	for i, sent := range sentences {
		inputBatch[i] = tokenizer.NewSingleEncodeInput(tokenizer.NewInputSequence(sent))
	}

	encodings, err := m.tk.EncodeBatch(inputBatch, true)
	if err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}

	batchSize := len(encodings)

	// The tokenizer may not pad uniformly; find the longest sequence and cap
	// it at the model's limit.
	seqLength := 0
	for _, enc := range encodings {
		if len(enc.Ids) > seqLength {
			seqLength = len(enc.Ids)
		}
	}
	if seqLength > MaxSequenceLength {
		seqLength = MaxSequenceLength
	}

	inputShape := ort.NewShape(int64(batchSize), int64(seqLength))

	inputIdsData := make([]int64, batchSize*seqLength)
	attentionMaskData := make([]int64, batchSize*seqLength)
	tokenTypeIdsData := make([]int64, batchSize*seqLength)

	for b := 0; b < batchSize; b++ {
		copyInt64(inputIdsData[b*seqLength:(b+1)*seqLength], encodings[b].Ids)
		copyInt64(attentionMaskData[b*seqLength:(b+1)*seqLength], encodings[b].AttentionMask)
		copyInt64(tokenTypeIdsData[b*seqLength:(b+1)*seqLength], encodings[b].TypeIds)
	}

	inputIdsTensor, err := ort.NewTensor(inputShape, inputIdsData)
	if err != nil {
		return nil, fmt.Errorf("create input_ids tensor: %w", err)
	}
	defer inputIdsTensor.Destroy()

	attentionMaskTensor, err := ort.NewTensor(inputShape, attentionMaskData)
	if err != nil {
		return nil, fmt.Errorf("create attention_mask tensor: %w", err)
	}
	defer attentionMaskTensor.Destroy()

	tokenTypeIdsTensor, err := ort.NewTensor(inputShape, tokenTypeIdsData)
	if err != nil {
		return nil, fmt.Errorf("create token_type_ids tensor: %w", err)
	}
	defer tokenTypeIdsTensor.Destroy()

	outputShape := ort.NewShape(int64(batchSize), int64(seqLength), int64(BGEEmbeddingDim))
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		return nil, fmt.Errorf("create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	inputTensors := []ort.Value{inputIdsTensor, attentionMaskTensor, tokenTypeIdsTensor}
	outputTensors := []ort.Value{outputTensor}

	if err := m.session.Run(inputTensors, outputTensors); err != nil {
		return nil, fmt.Errorf("run inference: %w", err)
	}

	return meanPooling(outputTensor.GetData(), attentionMaskData, batchSize, seqLength, BGEEmbeddingDim), nil
}

// copyInt64 copies token values into a padded int64 window, truncating to
// the window length.
func copyInt64(dst []int64, src []int) {
	n := len(src)
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = int64(src[i])
	}
}

// meanPooling averages token embeddings weighted by the attention mask.
// Input shape: [batch, seq_len, hidden]; output shape: [batch, hidden].
func meanPooling(embeddings []float32, attentionMask []int64, batchSize, seqLen, hiddenSize int) [][]float32 {
	results := make([][]float32, batchSize)

	for b := 0; b < batchSize; b++ {
		result := make([]float32, hiddenSize)
		var maskSum float32

		for s := 0; s < seqLen; s++ {
			maskVal := float32(attentionMask[b*seqLen+s])
			maskSum += maskVal

			if maskVal > 0 {
				embOffset := (b*seqLen + s) * hiddenSize
				for h := 0; h < hiddenSize; h++ {
					result[h] += embeddings[embOffset+h] * maskVal
				}
			}
		}

		if maskSum > 0 {
			for h := 0; h < hiddenSize; h++ {
				result[h] /= maskSum
			}
		}

		results[b] = result
	}

	return results
}

// Close releases model resources.
func (m *onnxModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	if m.session != nil {
		if err := m.session.Destroy(); err != nil {
			errs = append(errs, fmt.Errorf("destroy session: %w", err))
		}
		m.session = nil
	}
	if err := ort.DestroyEnvironment(); err != nil {
		errs = append(errs, fmt.Errorf("destroy environment: %w", err))
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
