package handler

import (
	"image"
	_ "image/jpeg" // Регистрация декодера JPEG
	_ "image/png"  // Регистрация декодера PNG
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"scene-guard-go/internal/database"
	"scene-guard-go/internal/model"
	"scene-guard-go/internal/repository"
	"scene-guard-go/internal/scene"
	"scene-guard-go/internal/vision"
	"scene-guard-go/pkg/models"
)

// Version версия сервиса
const Version = "1.0.0"

// SceneHandler обрабатывает HTTP запросы конвейера анализа сцены
type SceneHandler struct {
	controller *scene.Controller
	latest     *scene.LatestStore
	cycleRepo  repository.CycleRepository
	logger     *logrus.Logger
}

// NewSceneHandler создает новый экземпляр SceneHandler
func NewSceneHandler(controller *scene.Controller, latest *scene.LatestStore, cycleRepo repository.CycleRepository, logger *logrus.Logger) *SceneHandler {
	return &SceneHandler{
		controller: controller,
		latest:     latest,
		cycleRepo:  cycleRepo,
		logger:     logger,
	}
}

// RegisterRoutes регистрирует маршруты API
func (h *SceneHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.POST("/frames", h.SubmitFrame)
		api.GET("/detections/latest", h.GetLatestDetections)
		api.GET("/cycles", h.ListCycles)
		api.GET("/cycles/:id", h.GetCycle)
		api.GET("/health", h.CheckHealth)
	}
}

// SubmitFrame принимает кадр от внешнего источника.
// Кадр либо допускается к анализу, либо немедленно отбрасывается шлюзом —
// запрос никогда не ждет завершения инференса.
func (h *SceneHandler) SubmitFrame(c *gin.Context) {
	h.logger.Debug("Получен кадр от источника")

	if err := c.Request.ParseMultipartForm(16 << 20); err != nil { // 16 MB max
		h.logger.Errorf("Ошибка парсинга multipart form: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ошибка парсинга формы"})
		return
	}

	imageFile, _, err := c.Request.FormFile("image")
	if err != nil {
		h.logger.Errorf("Ошибка получения файла изображения: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Файл изображения обязателен"})
		return
	}
	defer imageFile.Close()

	img, _, err := image.Decode(imageFile)
	if err != nil {
		h.logger.Errorf("Ошибка декодирования изображения: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Изображение не декодируется"})
		return
	}

	// Метка времени кадра: из формы или момент приема
	ts := time.Now()
	if tsStr := c.PostForm("timestamp_ms"); tsStr != "" {
		if tsMS, err := strconv.ParseInt(tsStr, 10, 64); err == nil {
			ts = time.UnixMilli(tsMS)
		}
	}

	frame := vision.FrameFromImage(img, ts)
	admitted := h.controller.SubmitFrame(frame)

	if !admitted {
		c.JSON(http.StatusOK, models.SubmitResponse{
			Status:  "dropped",
			Message: "Кадр отброшен: не прошел интервал допуска или движок не готов",
		})
		return
	}

	c.JSON(http.StatusAccepted, models.SubmitResponse{
		Status:  "accepted",
		Message: "Кадр допущен к анализу",
	})
}

// GetLatestDetections возвращает последний результат цикла анализа
func (h *SceneHandler) GetLatestDetections(c *gin.Context) {
	result, found := h.latest.Latest()
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Свежих результатов нет"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListCycles возвращает последние циклы анализа из истории
func (h *SceneHandler) ListCycles(c *gin.Context) {
	limit := 20
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 || parsed > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit должен быть числом от 1 до 100"})
			return
		}
		limit = parsed
	}

	cycles, err := h.cycleRepo.ListRecent(limit)
	if err != nil {
		h.logger.Errorf("Ошибка получения истории циклов: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Внутренняя ошибка сервера"})
		return
	}

	responses := make([]models.CycleResult, 0, len(cycles))
	for _, cycle := range cycles {
		responses = append(responses, cycleToResponse(cycle))
	}

	c.JSON(http.StatusOK, gin.H{
		"cycles": responses,
		"total":  len(responses),
	})
}

// GetCycle возвращает один цикл анализа по ID
func (h *SceneHandler) GetCycle(c *gin.Context) {
	id := c.Param("id")

	cycle, err := h.cycleRepo.GetByID(id)
	if err != nil {
		h.logger.Debugf("Цикл %s не найден: %v", id, err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Цикл не найден"})
		return
	}

	c.JSON(http.StatusOK, cycleToResponse(cycle))
}

// CheckHealth проверяет состояние сервиса и его зависимостей
func (h *SceneHandler) CheckHealth(c *gin.Context) {
	h.logger.Debug("Получен запрос проверки здоровья")

	status := "healthy"
	statusCode := http.StatusOK

	if !h.controller.IsReady() {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	if err := database.HealthCheck(); err != nil {
		h.logger.Errorf("База данных недоступна: %v", err)
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, models.HealthResponse{
		Status:      status,
		EngineState: h.controller.EngineState().String(),
		EngineReady: h.controller.IsReady(),
		Version:     Version,
	})
}

// cycleToResponse преобразует модель базы данных в ответ API
func cycleToResponse(cycle *model.Cycle) models.CycleResult {
	detections := make([]models.Detection, 0, len(cycle.Detections))
	for _, det := range cycle.Detections {
		detections = append(detections, models.Detection{
			Label:          det.Label,
			Classification: det.Classification,
			Confidence:     det.Confidence,
			Box: models.BoundingBox{
				X:      det.BoxX,
				Y:      det.BoxY,
				Width:  det.BoxWidth,
				Height: det.BoxHeight,
			},
		})
	}

	return models.CycleResult{
		CycleID:     cycle.ID,
		Detections:  detections,
		Fallback:    cycle.Fallback,
		FrameWidth:  cycle.FrameWidth,
		FrameHeight: cycle.FrameHeight,
		ElapsedMS:   cycle.ElapsedMS,
		CreatedAt:   cycle.CreatedAt,
	}
}
