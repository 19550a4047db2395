package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"scene-guard-go/internal/client"
	"scene-guard-go/internal/config"
	"scene-guard-go/internal/database"
	"scene-guard-go/internal/emitter"
	"scene-guard-go/internal/engine"
	"scene-guard-go/internal/gate"
	"scene-guard-go/internal/handler"
	"scene-guard-go/internal/metrics"
	"scene-guard-go/internal/parser"
	"scene-guard-go/internal/repository"
	"scene-guard-go/internal/scene"
	"scene-guard-go/internal/vision"
)

func main() {
	// Инициализируем логгер
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.LoadConfig()

	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	logger.Info("Запуск Scene Guard API Server")

	// Инициализируем базу данных
	logger.Info("Подключение к базе данных...")
	if err := database.Connect(); err != nil {
		logger.Fatalf("Ошибка подключения к базе данных: %v", err)
	}

	logger.Info("Выполнение миграций базы данных...")
	if err := database.Migrate(); err != nil {
		logger.Fatalf("Ошибка выполнения миграций: %v", err)
	}

	if err := database.HealthCheck(); err != nil {
		logger.Fatalf("База данных недоступна: %v", err)
	}

	logger.Info("База данных успешно подключена и готова к работе")

	// Регистр метрик
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	pipelineMetrics := metrics.New(registry)

	// Движок инференса: внешний VLM сервер или симулятор для разработки
	var eng engine.Engine
	switch cfg.Engine.Mode {
	case "simulated":
		logger.Warn("Используется симулированный движок инференса")
		eng = engine.NewSimulatedEngine()
	default:
		eng = client.NewVLMAPIClient(
			cfg.Engine.BaseURL,
			cfg.Engine.Model,
			time.Duration(cfg.Engine.Timeout)*time.Second,
			logger,
		)
	}
	engineHandle := engine.NewHandle(eng, logger)

	// Компоненты конвейера анализа
	frameGate := gate.New(time.Duration(cfg.Analysis.IntervalMS)*time.Millisecond, engineHandle.IsReady)
	normalizer := vision.NewNormalizer(cfg.Analysis.MaxImageSide, cfg.Analysis.JPEGQuality)
	responseParser := parser.New()

	// Потребители результатов
	latestStore := scene.NewLatestStore(time.Duration(cfg.Cache.LatestTTLSeconds) * time.Second)
	cycleRepo := repository.NewCycleRepository(database.DB)
	recorder := scene.NewRecorder(cycleRepo, logger)

	consumers := []scene.Consumer{latestStore, recorder}

	var mqttEmitter *emitter.MQTTEmitter
	if cfg.MQTT.Enabled {
		mqttEmitter = emitter.NewMQTTEmitter(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Topic, logger)
		if err := mqttEmitter.Connect(); err != nil {
			// Эмиттер переподключится сам, публикации до этого будут теряться
			logger.Errorf("MQTT брокер недоступен при старте: %v", err)
		}
		consumers = append(consumers, mqttEmitter)
	}

	controller := scene.NewController(
		frameGate,
		normalizer,
		engineHandle,
		responseParser,
		cfg.Analysis.Prompt,
		logger,
		pipelineMetrics,
		consumers...,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Фоновая инициализация движка: кадры не допускаются до готовности
	controller.Start(ctx)

	// Настраиваем Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	sceneHandler := handler.NewSceneHandler(controller, latestStore, cycleRepo, logger)
	sceneHandler.RegisterRoutes(router)

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Scene Guard API Server",
			"version": handler.Version,
			"status":  "running",
		})
	})

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		logger.Infof("Сервер запущен на %s", serverAddr)
		logger.Infof("API доступно по адресу: http://localhost:%d/api/v1", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Ошибка запуска сервера: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Получен сигнал остановки, завершаем работу...")

	// Останавливаем движок: выполняющийся цикл завершится резервной доставкой
	controller.Shutdown()
	if mqttEmitter != nil {
		mqttEmitter.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Ошибка остановки HTTP сервера: %v", err)
	}

	logger.Info("Сервер остановлен")
}

// corsMiddleware добавляет заголовки CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
		c.Header("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
