package vision

import (
	"image"
	"image/color"
	"sync/atomic"
	"time"
)

// Frame сырой кадр с камеры в планарном формате YUV 4:2:0.
// Владение кадром передаётся ядру на время одного цикла анализа;
// ядро обязано освободить кадр ровно один раз на любом пути выполнения.
type Frame struct {
	Y  []byte // Плоскость яркости
	Cb []byte // Плоскость цветности Cb
	Cr []byte // Плоскость цветности Cr

	YStride int // Шаг плоскости Y в байтах
	CStride int // Шаг плоскостей Cb/Cr в байтах

	Width  int // Ширина кадра в пикселях
	Height int // Высота кадра в пикселях

	Timestamp time.Time // Момент захвата кадра

	release  func()      // Возврат буфера источнику, может быть nil
	released atomic.Bool // Защита от повторного освобождения
}

// NewFrame создает кадр с функцией освобождения буфера.
// release вызывается ровно один раз при первом Close.
func NewFrame(y, cb, cr []byte, yStride, cStride, width, height int, ts time.Time, release func()) *Frame {
	return &Frame{
		Y:         y,
		Cb:        cb,
		Cr:        cr,
		YStride:   yStride,
		CStride:   cStride,
		Width:     width,
		Height:    height,
		Timestamp: ts,
		release:   release,
	}
}

// Close освобождает буфер кадра. Идемпотентно: повторные вызовы — no-op.
func (f *Frame) Close() {
	if f.released.Swap(true) {
		return
	}
	if f.release != nil {
		f.release()
	}
}

// Released сообщает, был ли кадр уже освобожден
func (f *Frame) Released() bool {
	return f.released.Load()
}

// FrameFromImage преобразует декодированное изображение в планарный кадр.
// Для *image.YCbCr 4:2:0 плоскости переиспользуются без копирования,
// остальные форматы конвертируются попиксельно с субдискретизацией 2x2.
func FrameFromImage(img image.Image, ts time.Time) *Frame {
	if ycc, ok := img.(*image.YCbCr); ok && ycc.SubsampleRatio == image.YCbCrSubsampleRatio420 {
		b := ycc.Bounds()
		return NewFrame(ycc.Y, ycc.Cb, ycc.Cr, ycc.YStride, ycc.CStride, b.Dx(), b.Dy(), ts, nil)
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	// Чётные размеры для субдискретизации цветности
	cw, ch := (w+1)/2, (h+1)/2

	y := make([]byte, w*h)
	cb := make([]byte, cw*ch)
	cr := make([]byte, cw*ch)

	for py := 0; py < h; py++ {
		for px := 0; px < w; px++ {
			r, g, bl, _ := img.At(b.Min.X+px, b.Min.Y+py).RGBA()
			yy, ccb, ccr := color.RGBToYCbCr(uint8(r>>8), uint8(g>>8), uint8(bl>>8))
			y[py*w+px] = yy
			// Цветность берём из левого верхнего пикселя каждого блока 2x2
			if py%2 == 0 && px%2 == 0 {
				cb[(py/2)*cw+px/2] = ccb
				cr[(py/2)*cw+px/2] = ccr
			}
		}
	}

	return NewFrame(y, cb, cr, w, cw, w, h, ts, nil)
}
