package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	_ "image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiClientGenerate(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		imageBytes := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
		encoded := base64.StdEncoding.EncodeToString(imageBytes)

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1beta/models/gemini-2.5-flash-image:generateContent", r.URL.Path)
			assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

			w.Write([]byte(`{
				"candidates": [{
					"content": {"parts": [
						{"text": "here is your image"},
						{"inlineData": {"mimeType": "image/png", "data": "` + encoded + `"}}
					]},
					"finishReason": "STOP"
				}],
				"usageMetadata": {"promptTokenCount": 14, "candidatesTokenCount": 1290}
			}`))
		}))
		defer server.Close()

		client := NewGeminiClient(server.URL, "test-key", "gemini-2.5-flash-image", 5*time.Second)
		result, err := client.Generate(context.Background(), ImageRequest{Prompt: "modern apartment facade"})

		require.NoError(t, err)
		assert.Equal(t, imageBytes, result.Data)
		assert.Equal(t, "image/png", result.MimeType)
		assert.Equal(t, 14, result.TokensIn)
		assert.Equal(t, 1290, result.TokensOut)
	})

	t.Run("NoImageInResponse", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{
				"candidates": [{"content": {"parts": [{"text": "I cannot generate that"}]}}],
				"usageMetadata": {"promptTokenCount": 14, "candidatesTokenCount": 8}
			}`))
		}))
		defer server.Close()

		client := NewGeminiClient(server.URL, "k", "gemini-2.5-flash-image", 5*time.Second)
		_, err := client.Generate(context.Background(), ImageRequest{Prompt: "x"})

		require.Error(t, err)
		var provErr *ProviderError
		require.True(t, errors.As(err, &provErr))
		assert.Equal(t, "gemini", provErr.Provider)
		assert.Contains(t, provErr.Message, "no image data")
	})

	t.Run("APIError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error": {"code": 403, "message": "API key not valid", "status": "PERMISSION_DENIED"}}`))
		}))
		defer server.Close()

		client := NewGeminiClient(server.URL, "bad-key", "gemini-2.5-flash-image", 5*time.Second)
		_, err := client.Generate(context.Background(), ImageRequest{Prompt: "x"})

		require.Error(t, err)
		var provErr *ProviderError
		require.True(t, errors.As(err, &provErr))
		assert.Equal(t, http.StatusForbidden, provErr.StatusCode)
		assert.Equal(t, "API key not valid", provErr.Message)
	})

	t.Run("Timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		client := NewGeminiClient(server.URL, "k", "gemini-2.5-flash-image", 20*time.Millisecond)
		_, err := client.Generate(context.Background(), ImageRequest{Prompt: "x"})

		require.Error(t, err)
		var provErr *ProviderError
		require.True(t, errors.As(err, &provErr))
		assert.True(t, provErr.Timeout)
	})
}

func TestPlaceholderImageService(t *testing.T) {
	svc := NewPlaceholderImageService(0, 0)
	assert.Equal(t, 1080, svc.Width)
	assert.Equal(t, 1080, svc.Height)
	assert.Equal(t, "placeholder", svc.Provider())

	result, err := svc.Generate(context.Background(), ImageRequest{Prompt: "sunny terrace"})
	require.NoError(t, err)
	assert.Equal(t, "image/png", result.MimeType)
	assert.NotEmpty(t, result.Data)
	assert.Zero(t, result.TokensIn)
	assert.Zero(t, result.TokensOut)

	// Deterministic for the same prompt
	again, err := svc.Generate(context.Background(), ImageRequest{Prompt: "sunny terrace"})
	require.NoError(t, err)
	assert.Equal(t, result.Data, again.Data)

	other, err := svc.Generate(context.Background(), ImageRequest{Prompt: "city skyline at dusk"})
	require.NoError(t, err)
	assert.NotEqual(t, result.Data, other.Data)
}

func TestNormalizeImage(t *testing.T) {
	t.Run("ReencodesSmallImage", func(t *testing.T) {
		src, err := NewPlaceholderImageService(400, 300).Generate(context.Background(), ImageRequest{Prompt: "p"})
		require.NoError(t, err)

		out, err := NormalizeImage(src.Data)
		require.NoError(t, err)
		assertJPEGSize(t, out, 400, 300)
	})

	t.Run("ScalesDownOversizedImage", func(t *testing.T) {
		src, err := NewPlaceholderImageService(2160, 2160).Generate(context.Background(), ImageRequest{Prompt: "p"})
		require.NoError(t, err)

		out, err := NormalizeImage(src.Data)
		require.NoError(t, err)
		assertJPEGSize(t, out, 1080, 1080)
	})

	t.Run("RejectsGarbage", func(t *testing.T) {
		_, err := NormalizeImage([]byte("definitely not an image"))
		require.Error(t, err)
	})
}

func assertJPEGSize(t *testing.T, data []byte, width, height int) {
	t.Helper()

	img, format, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, width, img.Bounds().Dx())
	assert.Equal(t, height, img.Bounds().Dy())
}
