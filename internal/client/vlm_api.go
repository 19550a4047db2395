package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"scene-guard-go/pkg/models"
)

// VLMAPIClient клиент для взаимодействия с сервером мультимодальной модели.
// Реализует engine.Engine: сервер модели — внешний ресурс, ядро его не переизобретает.
type VLMAPIClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewVLMAPIClient создает новый клиент для сервера модели
func NewVLMAPIClient(baseURL, model string, timeout time.Duration, logger *logrus.Logger) *VLMAPIClient {
	return &VLMAPIClient{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Generate отправляет изображение с инструкцией на генерацию ответа
func (c *VLMAPIClient) Generate(ctx context.Context, image []byte, prompt string) (string, error) {
	c.logger.Debug("Отправка изображения на инференс в VLM API")

	request := models.VLMGenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		Images: []string{base64.StdEncoding.EncodeToString(image)},
		Stream: false,
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации запроса: %w", err)
	}

	url := fmt.Sprintf("%s/api/generate", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("ошибка создания HTTP запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ошибка отправки HTTP запроса: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("VLM API вернул ошибку: статус %d, тело: %s", resp.StatusCode, string(respBody))
	}

	var apiResponse models.VLMGenerateResponse
	if err := json.Unmarshal(respBody, &apiResponse); err != nil {
		return "", fmt.Errorf("ошибка парсинга JSON ответа: %w", err)
	}

	c.logger.Debugf("Инференс завершен за %v", time.Since(start))
	return apiResponse.Response, nil
}

// CheckHealth проверяет состояние сервера модели
func (c *VLMAPIClient) CheckHealth(ctx context.Context) (*models.VLMHealthResponse, error) {
	c.logger.Debug("Проверка здоровья VLM API")

	url := fmt.Sprintf("%s/api/health", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания HTTP запроса: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка отправки HTTP запроса: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("VLM API вернул ошибку: статус %d, тело: %s", resp.StatusCode, string(respBody))
	}

	var healthResponse models.VLMHealthResponse
	if err := json.Unmarshal(respBody, &healthResponse); err != nil {
		return nil, fmt.Errorf("ошибка парсинга JSON ответа: %w", err)
	}

	return &healthResponse, nil
}

// Initialize реализует engine.Engine: готовность сервера и модели обязательна
func (c *VLMAPIClient) Initialize(ctx context.Context) error {
	health, err := c.CheckHealth(ctx)
	if err != nil {
		return fmt.Errorf("сервер модели недоступен: %w", err)
	}
	if !health.ModelLoaded {
		return fmt.Errorf("модель %s не загружена на сервере", c.model)
	}
	c.logger.Infof("Сервер модели готов, версия %s", health.Version)
	return nil
}

// Infer реализует engine.Engine
func (c *VLMAPIClient) Infer(ctx context.Context, image []byte, prompt string) (string, error) {
	return c.Generate(ctx, image, prompt)
}

// Shutdown реализует engine.Engine: закрываем простаивающие соединения
func (c *VLMAPIClient) Shutdown() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
