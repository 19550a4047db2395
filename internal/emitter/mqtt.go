package emitter

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"scene-guard-go/pkg/models"
)

// MQTTEmitter публикует результаты циклов анализа в MQTT брокер.
// Потеря публикации не ошибка конвейера: брокер может переподключаться,
// а результат уже доставлен остальным потребителям.
type MQTTEmitter struct {
	client mqtt.Client
	topic  string
	logger *logrus.Logger
}

// NewMQTTEmitter создает эмиттер для заданного брокера и топика
func NewMQTTEmitter(broker, clientID, topic string, logger *logrus.Logger) *MQTTEmitter {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		logger.Infof("Соединение с MQTT брокером %s установлено", broker)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		logger.Warnf("Соединение с MQTT брокером потеряно, будет переподключение: %v", err)
	}

	return &MQTTEmitter{
		client: mqtt.NewClient(opts),
		topic:  topic,
		logger: logger,
	}
}

// Connect устанавливает соединение с брокером
func (e *MQTTEmitter) Connect() error {
	token := e.client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}
	return nil
}

// Deliver реализует scene.Consumer: публикует результат цикла как JSON
func (e *MQTTEmitter) Deliver(result models.CycleResult) {
	payload, err := json.Marshal(result)
	if err != nil {
		e.logger.Errorf("Ошибка сериализации результата цикла %s: %v", result.CycleID, err)
		return
	}

	token := e.client.Publish(e.topic, 0, false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		e.logger.Warnf("Таймаут публикации цикла %s в MQTT", result.CycleID)
		return
	}
	if err := token.Error(); err != nil {
		e.logger.Errorf("Ошибка публикации цикла %s в MQTT: %v", result.CycleID, err)
	}
}

// Close разрывает соединение с брокером
func (e *MQTTEmitter) Close() {
	e.client.Disconnect(250)
}
