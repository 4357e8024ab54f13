package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     int
	Password string

	ModelPath           string
	ModelConfigPath     string
	ModelFormat         string  // yolov8 albo ssd
	LabelsPath          string  // pusty = wbudowany słownik COCO
	ConfidenceThreshold float64 // Minimalna pewność detekcji
	NMSThreshold        float64
	InputSize           int

	ReportDirectory       string
	SnapshotDirectory     string
	SnapshotLimit         int // Ile klatek z adnotacjami trzymać na sesję
	SnapshotFlushInterval int // Co ile sekund zrzucać bufor na dysk
	UploadDirectory       string
	DatabasePath          string

	LogDirectory string
	LogMaxSizeMB int

	ProcessingInterval int // Co którą klatkę przetwarzać (1=każdą, 3=co trzecią)
	ProcessingWorkers  int // Liczba detektorów w puli
	CameraDevice       string
}

// Load reads .env (when present) and then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:                  getEnvAsInt("PORT", 8080),
		Password:              getEnv("PASSWORD", "detectlab"),
		ModelPath:             getEnv("MODEL_PATH", filepath.Join(".", "models", "yolov8n.onnx")),
		ModelConfigPath:       getEnv("MODEL_CONFIG_PATH", ""),
		ModelFormat:           strings.ToLower(getEnv("MODEL_FORMAT", "yolov8")),
		LabelsPath:            getEnv("LABELS_PATH", ""),
		ConfidenceThreshold:   getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.25),
		NMSThreshold:          getEnvAsFloat("NMS_THRESHOLD", 0.45),
		InputSize:             getEnvAsInt("INPUT_SIZE", 640),
		ReportDirectory:       getEnv("REPORT_DIR", filepath.Join(".", "reports")),
		SnapshotDirectory:     getEnv("SNAPSHOT_DIR", filepath.Join(".", "snapshots")),
		SnapshotLimit:         getEnvAsInt("SNAPSHOT_LIMIT", 10),
		SnapshotFlushInterval: getEnvAsInt("SNAPSHOT_FLUSH_INTERVAL", 30),
		UploadDirectory:       getEnv("UPLOAD_DIR", filepath.Join(os.TempDir(), "detectlab-uploads")),
		DatabasePath:          getEnv("DB_PATH", filepath.Join(".", "data", "reports.db")),
		LogDirectory:          getEnv("LOG_DIR", filepath.Join(".", "logs")),
		LogMaxSizeMB:          getEnvAsInt("LOG_MAX_SIZE_MB", 10),
		ProcessingInterval:    getEnvAsInt("PROCESSING_INTERVAL", 1),
		ProcessingWorkers:     getEnvAsInt("PROCESSING_WORKERS", 2),
		CameraDevice:          getEnv("CAMERA_DEVICE", "0"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
