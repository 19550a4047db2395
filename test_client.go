package main

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"
)

func main() {
	// Проверяем health endpoint
	fmt.Println("Проверяем health endpoint...")
	resp, err := http.Get("http://localhost:8080/api/v1/health")
	if err != nil {
		fmt.Printf("Ошибка при обращении к health endpoint: %v\n", err)
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Printf("Ошибка чтения ответа: %v\n", err)
		return
	}

	fmt.Printf("Health check ответ (статус %d):\n%s\n\n", resp.StatusCode, string(body))

	// Отправляем кадр: либо из файла, либо сгенерированный
	var imageData []byte
	if len(os.Args) > 1 {
		imageData, err = os.ReadFile(os.Args[1])
		if err != nil {
			fmt.Printf("Ошибка чтения файла изображения: %v\n", err)
			return
		}
		fmt.Printf("Отправляем кадр %s на анализ...\n", os.Args[1])
	} else {
		imageData, err = generateTestFrame()
		if err != nil {
			fmt.Printf("Ошибка генерации тестового кадра: %v\n", err)
			return
		}
		fmt.Println("Отправляем сгенерированный тестовый кадр на анализ...")
	}

	if err := submitFrame(imageData); err != nil {
		fmt.Printf("Ошибка при отправке кадра: %v\n", err)
		return
	}

	// Даем конвейеру время на инференс и забираем последний результат
	time.Sleep(3 * time.Second)

	resp, err = http.Get("http://localhost:8080/api/v1/detections/latest")
	if err != nil {
		fmt.Printf("Ошибка получения последних детекций: %v\n", err)
		return
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		fmt.Printf("Ошибка чтения ответа: %v\n", err)
		return
	}

	fmt.Printf("Последние детекции (статус %d):\n%s\n", resp.StatusCode, string(body))
}

// submitFrame отправляет кадр на POST /api/v1/frames
func submitFrame(imageData []byte) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	imageWriter, err := writer.CreateFormFile("image", "frame.jpg")
	if err != nil {
		return fmt.Errorf("ошибка создания form field для изображения: %w", err)
	}
	if _, err := imageWriter.Write(imageData); err != nil {
		return fmt.Errorf("ошибка записи данных изображения: %w", err)
	}

	if err := writer.WriteField("timestamp_ms", fmt.Sprintf("%d", time.Now().UnixMilli())); err != nil {
		return fmt.Errorf("ошибка записи timestamp_ms: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("ошибка закрытия multipart writer: %w", err)
	}

	req, err := http.NewRequest("POST", "http://localhost:8080/api/v1/frames", &body)
	if err != nil {
		return fmt.Errorf("ошибка создания HTTP запроса: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка отправки HTTP запроса: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	fmt.Printf("Ответ сервера (статус %d):\n%s\n\n", resp.StatusCode, string(respBody))
	return nil
}

// generateTestFrame создает простой градиентный кадр 800x600
func generateTestFrame() ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, 800, 600))
	for y := 0; y < 600; y++ {
		for x := 0; x < 800; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x * 255 / 800),
				G: uint8(y * 255 / 600),
				B: 128,
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
