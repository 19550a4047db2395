package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEmptyTextReturnsFallback(t *testing.T) {
	p := New()

	before := p.Parse("", false)
	require.Len(t, before, 1)
	require.Equal(t, FallbackLabelStarting, before[0].Label)
	require.Equal(t, "medium", before[0].Classification)
	require.Equal(t, 0.5, before[0].Confidence)

	after := p.Parse("", true)
	require.Len(t, after, 1)
	require.Equal(t, FallbackLabelEmpty, after[0].Label)

	// Пустой текст и отсутствие ответа дают одну и ту же последовательность
	require.Equal(t, p.Fallback(true), after)
	require.Equal(t, p.Fallback(false), before)
}

func TestParsePrimaryDetectionWithDefaults(t *testing.T) {
	p := New()

	detections := p.Parse("DETECTED: cup\nCONFIDENCE: high", true)
	require.Len(t, detections, 1)
	require.Equal(t, "cup", detections[0].Label)
	require.Equal(t, 0.9, detections[0].Confidence)
	// Риск по умолчанию low
	require.Equal(t, "low", detections[0].Classification)
}

func TestParseActionProducesSecondDetection(t *testing.T) {
	p := New()

	detections := p.Parse("DETECTED: person\nRISK: high\nACTION: urgent evacuate\nCONFIDENCE: medium", true)
	require.Len(t, detections, 2)

	require.Equal(t, "person", detections[0].Label)
	require.Equal(t, "high", detections[0].Classification)
	require.Equal(t, 0.7, detections[0].Confidence)

	require.Equal(t, "Action: urgent evacuate", detections[1].Label)
	require.Equal(t, "critical", detections[1].Classification)
	require.Equal(t, 0.7, detections[1].Confidence)

	// Области у детекций разные и фиксированные
	require.NotEqual(t, detections[0].Box, detections[1].Box)
}

func TestParseWithoutDetectedReturnsFallback(t *testing.T) {
	p := New()

	detections := p.Parse("RISK: high", true)
	require.Len(t, detections, 1)
	require.Equal(t, FallbackLabelEmpty, detections[0].Label)
	require.True(t, p.IsFallback(detections))
}

func TestParseLastOccurrenceWins(t *testing.T) {
	p := New()

	detections := p.Parse("RISK: low\nRISK: high\nDETECTED: x", true)
	require.Len(t, detections, 1)
	require.Equal(t, "x", detections[0].Label)
	require.Equal(t, "high", detections[0].Classification)
}

func TestParseActionNoneSkipsSecondDetection(t *testing.T) {
	p := New()

	for _, action := range []string{"none", "None", "NONE", ""} {
		detections := p.Parse("DETECTED: cat\nACTION: "+action, true)
		require.Len(t, detections, 1, "действие %q не должно давать вторую детекцию", action)
	}
}

func TestParseActionKeywordClassification(t *testing.T) {
	p := New()

	tests := []struct {
		action string
		want   string
	}{
		{"URGENT call someone", "critical"},
		{"proceed with Caution", "high"},
		{"check later", "medium"},
	}

	for _, tc := range tests {
		detections := p.Parse("DETECTED: dog\nACTION: "+tc.action, true)
		require.Len(t, detections, 2)
		require.Equal(t, tc.want, detections[1].Classification)
	}
}

func TestParseConfidenceQuantization(t *testing.T) {
	p := New()

	tests := []struct {
		text string
		want float64
	}{
		{"high", 0.9},
		{"HIGH", 0.9},
		{"medium", 0.7},
		{"low", 0.5},
		{"certainly", 0.6},
		{"85%", 0.6},
	}

	for _, tc := range tests {
		detections := p.Parse("DETECTED: cup\nCONFIDENCE: "+tc.text, true)
		require.Len(t, detections, 1)
		require.Equal(t, tc.want, detections[0].Confidence, "уверенность %q", tc.text)
	}
}

func TestParsePrefixMatchIsCaseSensitive(t *testing.T) {
	p := New()

	// Префиксы в нижнем регистре не распознаются
	detections := p.Parse("detected: cup\nrisk: high", true)
	require.True(t, p.IsFallback(detections))
}

func TestParseTrimsFieldValues(t *testing.T) {
	p := New()

	detections := p.Parse("DETECTED:    cup  \r\nRISK:  high \r", true)
	require.Len(t, detections, 1)
	require.Equal(t, "cup", detections[0].Label)
	require.Equal(t, "high", detections[0].Classification)
}

func TestParseNeverReturnsEmptySequence(t *testing.T) {
	p := New()

	inputs := []string{
		"",
		"мусор без полей",
		"DETECTED:",
		strings.Repeat("RISK: high\n", 100),
		"CONFIDENCE: high\nACTION: urgent run",
	}

	for _, input := range inputs {
		detections := p.Parse(input, true)
		require.NotEmpty(t, detections, "вход %q", input)
	}
}
