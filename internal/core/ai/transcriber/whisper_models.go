package transcriber

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// WhisperModel represents a whisper.cpp model.
type WhisperModel struct {
	Name        string // Short name (e.g., "tiny", "small", "large-v3-turbo")
	FileName    string // Full filename (e.g., "ggml-small.bin")
	Size        string // Human-readable size
	Description string
	URL         string // Download URL
}

const hfBase = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

// WhisperModels lists available whisper.cpp models.
var WhisperModels = []WhisperModel{
	{
		Name:        "tiny",
		FileName:    "ggml-tiny.bin",
		Size:        "75MB",
		Description: "Fastest, lowest accuracy (server default)",
		URL:         hfBase + "ggml-tiny.bin",
	},
	{
		Name:        "base",
		FileName:    "ggml-base.bin",
		Size:        "142MB",
		Description: "Fast, fair accuracy",
		URL:         hfBase + "ggml-base.bin",
	},
	{
		Name:        "small",
		FileName:    "ggml-small.bin",
		Size:        "466MB",
		Description: "Good accuracy on CPU",
		URL:         hfBase + "ggml-small.bin",
	},
	{
		Name:        "medium",
		FileName:    "ggml-medium.bin",
		Size:        "1.5GB",
		Description: "Balanced speed and accuracy",
		URL:         hfBase + "ggml-medium.bin",
	},
	{
		Name:        "large-v3-turbo",
		FileName:    "ggml-large-v3-turbo.bin",
		Size:        "1.6GB",
		Description: "Best accuracy, requires GPU",
		URL:         hfBase + "ggml-large-v3-turbo.bin",
	},
}

// ModelManager handles whisper model downloads and caching.
type ModelManager struct {
	modelsDir string
	client    *http.Client
}

// NewModelManager creates a new model manager.
// modelsDir is typically ~/.config/vscribe/models/
func NewModelManager(modelsDir string) *ModelManager {
	return &ModelManager{modelsDir: modelsDir, client: http.DefaultClient}
}

// GetModel returns a model by name. Accepts "tiny", "whisper-tiny" and
// "ggml-tiny.bin".
func GetModel(name string) *WhisperModel {
	name = strings.TrimPrefix(name, "whisper-")
	name = strings.TrimPrefix(name, "ggml-")
	name = strings.TrimSuffix(name, ".bin")

	for _, m := range WhisperModels {
		if m.Name == name {
			return &m
		}
	}
	return nil
}

// ModelPath returns the path to a model file.
func (m *ModelManager) ModelPath(modelName string) string {
	// If it's a full path, return as-is
	if filepath.IsAbs(modelName) {
		return modelName
	}

	if model := GetModel(modelName); model != nil {
		return filepath.Join(m.modelsDir, model.FileName)
	}

	if strings.HasSuffix(modelName, ".bin") {
		return filepath.Join(m.modelsDir, modelName)
	}
	return filepath.Join(m.modelsDir, "ggml-"+modelName+".bin")
}

// IsModelDownloaded checks if a model is already downloaded.
func (m *ModelManager) IsModelDownloaded(modelName string) bool {
	info, err := os.Stat(m.ModelPath(modelName))
	if err != nil {
		return false
	}
	return info.Size() > 0
}

// EnsureModel downloads a model if not already present.
// Returns the path to the model file.
func (m *ModelManager) EnsureModel(ctx context.Context, modelName string) (string, error) {
	path := m.ModelPath(modelName)

	if m.IsModelDownloaded(modelName) {
		return path, nil
	}

	model := GetModel(modelName)
	if model == nil {
		return "", fmt.Errorf("whisper model not found: %s (and %q is not a known model to download)", path, modelName)
	}

	if err := m.download(ctx, model, path); err != nil {
		return "", err
	}
	return path, nil
}

// download fetches a model into a .tmp file and renames it into place.
func (m *ModelManager) download(ctx context.Context, model *WhisperModel, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	tmpPath := destPath + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmpPath)
	defer out.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, model.URL, nil)
	if err != nil {
		return err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download model: HTTP %d", resp.StatusCode)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename model file: %w", err)
	}
	return nil
}

// ListDownloadedModels returns a list of downloaded model names.
func (m *ModelManager) ListDownloadedModels() []string {
	var models []string

	entries, err := os.ReadDir(m.modelsDir)
	if err != nil {
		return models
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, "ggml-") && strings.HasSuffix(name, ".bin") {
			shortName := strings.TrimPrefix(name, "ggml-")
			shortName = strings.TrimSuffix(shortName, ".bin")
			models = append(models, shortName)
		}
	}

	return models
}

// ListAvailableModels returns info about all available models.
func (m *ModelManager) ListAvailableModels() []WhisperModelInfo {
	var result []WhisperModelInfo

	for _, model := range WhisperModels {
		result = append(result, WhisperModelInfo{
			Name:        model.Name,
			Size:        model.Size,
			Description: model.Description,
			Downloaded:  m.IsModelDownloaded(model.Name),
		})
	}

	return result
}

// WhisperModelInfo contains model info with download status.
type WhisperModelInfo struct {
	Name        string `json:"name"`
	Size        string `json:"size"`
	Description string `json:"description"`
	Downloaded  bool   `json:"downloaded"`
}
