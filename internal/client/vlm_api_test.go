package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"scene-guard-go/pkg/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestGenerateSendsRequestAndParsesResponse(t *testing.T) {
	image := []byte{0xFF, 0xD8, 0xFF}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/generate", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var request models.VLMGenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&request))
		require.Equal(t, "llava:7b", request.Model)
		require.Equal(t, "опиши сцену", request.Prompt)
		require.False(t, request.Stream)
		require.Len(t, request.Images, 1)
		require.Equal(t, base64.StdEncoding.EncodeToString(image), request.Images[0])

		json.NewEncoder(w).Encode(models.VLMGenerateResponse{
			Model:    request.Model,
			Response: "DETECTED: cup\nRISK: low",
			Done:     true,
		})
	}))
	defer server.Close()

	c := NewVLMAPIClient(server.URL, "llava:7b", 5*time.Second, testLogger())

	text, err := c.Generate(context.Background(), image, "опиши сцену")
	require.NoError(t, err)
	require.Equal(t, "DETECTED: cup\nRISK: low", text)
}

func TestGenerateReturnsErrorOnBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewVLMAPIClient(server.URL, "llava:7b", 5*time.Second, testLogger())

	_, err := c.Generate(context.Background(), []byte("img"), "prompt")
	require.Error(t, err)
	require.Contains(t, err.Error(), "статус 503")
}

func TestCheckHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/health", r.URL.Path)

		json.NewEncoder(w).Encode(models.VLMHealthResponse{
			Status:      "healthy",
			ModelLoaded: true,
			Version:     "0.3.1",
		})
	}))
	defer server.Close()

	c := NewVLMAPIClient(server.URL, "llava:7b", 5*time.Second, testLogger())

	health, err := c.CheckHealth(context.Background())
	require.NoError(t, err)
	require.Equal(t, "healthy", health.Status)
	require.True(t, health.ModelLoaded)
	require.Equal(t, "0.3.1", health.Version)
}

func TestInitializeFailsWhenModelNotLoaded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.VLMHealthResponse{
			Status:      "starting",
			ModelLoaded: false,
		})
	}))
	defer server.Close()

	c := NewVLMAPIClient(server.URL, "llava:7b", 5*time.Second, testLogger())

	err := c.Initialize(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "не загружена")
}

func TestInitializeFailsWhenServerUnreachable(t *testing.T) {
	c := NewVLMAPIClient("http://127.0.0.1:1", "llava:7b", time.Second, testLogger())

	err := c.Initialize(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "сервер модели недоступен")
}

func TestInitializeSucceedsWhenModelLoaded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.VLMHealthResponse{
			Status:      "healthy",
			ModelLoaded: true,
			Version:     "0.3.1",
		})
	}))
	defer server.Close()

	c := NewVLMAPIClient(server.URL, "llava:7b", 5*time.Second, testLogger())
	require.NoError(t, c.Initialize(context.Background()))
}
