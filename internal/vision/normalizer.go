package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
)

// EncodedImage нормализованное изображение, готовое к инференсу.
// Принадлежит исключительно текущему вызову инференса.
type EncodedImage struct {
	Data   []byte // JPEG данные
	Width  int    // Ширина после масштабирования
	Height int    // Высота после масштабирования
}

// ConversionError ошибка преобразования кадра в изображение
type ConversionError struct {
	Reason string
	Err    error
}

func (e *ConversionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ошибка преобразования кадра: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("ошибка преобразования кадра: %s", e.Reason)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// Normalizer приводит сырой кадр к ограниченному по размеру JPEG изображению
type Normalizer struct {
	MaxSide     int // Ограничение длинной стороны, по умолчанию 640
	JPEGQuality int // Качество кодирования, по умолчанию 85
}

// NewNormalizer создает нормализатор с заданными ограничениями
func NewNormalizer(maxSide, jpegQuality int) *Normalizer {
	if maxSide <= 0 {
		maxSide = 640
	}
	if jpegQuality <= 0 || jpegQuality > 100 {
		jpegQuality = 85
	}
	return &Normalizer{
		MaxSide:     maxSide,
		JPEGQuality: jpegQuality,
	}
}

// Normalize преобразует планарный кадр в JPEG с длинной стороной не более MaxSide.
// Масштаб единый по обеим осям: MaxSide / max(width, height), пропорции сохраняются.
// Кадры в пределах ограничения кодируются без масштабирования.
func (n *Normalizer) Normalize(frame *Frame) (*EncodedImage, error) {
	src, err := n.decodePlanar(frame)
	if err != nil {
		return nil, err
	}

	var out image.Image = src
	width, height := frame.Width, frame.Height

	if maxSide := maxInt(width, height); maxSide > n.MaxSide {
		scale := float64(n.MaxSide) / float64(maxSide)
		newW := maxInt(1, int(float64(width)*scale))
		newH := maxInt(1, int(float64(height)*scale))
		out = downscale(src, newW, newH)
		width, height = newW, newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: n.JPEGQuality}); err != nil {
		return nil, &ConversionError{Reason: "кодирование JPEG", Err: err}
	}

	return &EncodedImage{
		Data:   buf.Bytes(),
		Width:  width,
		Height: height,
	}, nil
}

// decodePlanar собирает image.YCbCr из плоскостей кадра с проверкой согласованности буферов
func (n *Normalizer) decodePlanar(frame *Frame) (*image.YCbCr, error) {
	if frame == nil {
		return nil, &ConversionError{Reason: "кадр отсутствует"}
	}
	if frame.Width <= 0 || frame.Height <= 0 {
		return nil, &ConversionError{Reason: fmt.Sprintf("недопустимые размеры кадра %dx%d", frame.Width, frame.Height)}
	}
	if frame.YStride < frame.Width {
		return nil, &ConversionError{Reason: "шаг плоскости Y меньше ширины кадра"}
	}

	cw := (frame.Width + 1) / 2
	ch := (frame.Height + 1) / 2
	if frame.CStride < cw {
		return nil, &ConversionError{Reason: "шаг плоскости цветности меньше половины ширины кадра"}
	}
	if len(frame.Y) < frame.YStride*(frame.Height-1)+frame.Width {
		return nil, &ConversionError{Reason: "плоскость Y короче ожидаемой"}
	}
	need := frame.CStride*(ch-1) + cw
	if len(frame.Cb) < need || len(frame.Cr) < need {
		return nil, &ConversionError{Reason: "плоскость цветности короче ожидаемой"}
	}

	return &image.YCbCr{
		Y:              frame.Y,
		Cb:             frame.Cb,
		Cr:             frame.Cr,
		YStride:        frame.YStride,
		CStride:        frame.CStride,
		SubsampleRatio: image.YCbCrSubsampleRatio420,
		Rect:           image.Rect(0, 0, frame.Width, frame.Height),
	}, nil
}

// downscale уменьшает изображение методом ближайшего соседа
func downscale(src image.Image, newW, newH int) image.Image {
	srcB := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))

	xRatio := float64(srcB.Dx()) / float64(newW)
	yRatio := float64(srcB.Dy()) / float64(newH)

	for y := 0; y < newH; y++ {
		sy := srcB.Min.Y + int(float64(y)*yRatio)
		for x := 0; x < newW; x++ {
			sx := srcB.Min.X + int(float64(x)*xRatio)
			dst.Set(x, y, src.At(sx, sy))
		}
	}

	return dst
}

// maxInt возвращает большее из двух чисел
func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
