package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config структура конфигурации приложения
type Config struct {
	Server struct {
		Port int
		Host string
	}
	Engine struct {
		Mode    string // vlm / simulated
		BaseURL string
		Model   string
		Timeout int // в секундах
	}
	Analysis struct {
		IntervalMS   int    // Минимальный интервал между допущенными кадрами
		MaxImageSide int    // Ограничение длинной стороны изображения
		JPEGQuality  int    // Качество JPEG для нормализованного изображения
		Prompt       string // Инструкция для мультимодальной модели
	}
	MQTT struct {
		Enabled  bool
		Broker   string
		ClientID string
		Topic    string
	}
	Cache struct {
		LatestTTLSeconds int // TTL последнего результата
	}
	Logging struct {
		Level string
	}
}

// DefaultPrompt фиксированная инструкция: модель обязана отвечать четырьмя
// полями DETECTED/RISK/ACTION/CONFIDENCE, которые дословно разбирает парсер ответов
const DefaultPrompt = "Analyze this camera frame and describe the most important finding. " +
	"Answer strictly in this format, one field per line:\n" +
	"DETECTED: <main object or event>\n" +
	"RISK: <low|medium|high>\n" +
	"ACTION: <recommended action or none>\n" +
	"CONFIDENCE: <low|medium|high>"

// LoadConfig загружает конфигурацию из переменных окружения
func LoadConfig() *Config {
	// Подхватываем .env если он есть, отсутствие файла не ошибка
	_ = godotenv.Load()

	cfg := &Config{}

	// Конфигурация сервера
	cfg.Server.Port = getEnvInt("SERVER_PORT", 8080)
	cfg.Server.Host = getEnv("SERVER_HOST", "0.0.0.0")

	// Конфигурация движка инференса
	cfg.Engine.Mode = getEnv("ENGINE_MODE", "vlm")
	cfg.Engine.BaseURL = getEnv("VLM_API_BASE_URL", "http://localhost:11434")
	cfg.Engine.Model = getEnv("VLM_MODEL", "llava:7b")
	cfg.Engine.Timeout = getEnvInt("VLM_API_TIMEOUT_SECONDS", 120) // инференс занимает секунды

	// Конфигурация анализа кадров
	cfg.Analysis.IntervalMS = getEnvInt("ANALYSIS_INTERVAL_MS", 2000)
	cfg.Analysis.MaxImageSide = getEnvInt("ANALYSIS_MAX_IMAGE_SIDE", 640)
	cfg.Analysis.JPEGQuality = getEnvInt("ANALYSIS_JPEG_QUALITY", 85)
	cfg.Analysis.Prompt = getEnv("ANALYSIS_PROMPT", DefaultPrompt)

	// Конфигурация MQTT
	cfg.MQTT.Enabled = getEnvBool("MQTT_ENABLED", false)
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "scene-guard")
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "scene-guard/detections")

	// Конфигурация кэша
	cfg.Cache.LatestTTLSeconds = getEnvInt("CACHE_LATEST_TTL_SECONDS", 60)

	// Конфигурация логирования
	cfg.Logging.Level = getEnv("LOG_LEVEL", "info")

	return cfg
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает int значение переменной окружения или возвращает значение по умолчанию
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool получает bool значение переменной окружения или возвращает значение по умолчанию
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
