package recognize

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	apperrors "github.com/GriffinCanCode/encounter-tracker/internal/errors"
	"github.com/GriffinCanCode/encounter-tracker/internal/frame"
	"github.com/GriffinCanCode/encounter-tracker/internal/resilience"
)

// RemoteConfig configures the recognition service client.
type RemoteConfig struct {
	Endpoint string
	Model    string // optional model hint forwarded to the service
	APIKey   string // optional, sent as Bearer
}

// Remote is a Recognizer backed by an HTTP recognition service. The service
// owns the trained model; this client handles transport, honors the per-call
// deadline on ctx, and reduces the returned text to a label.
type Remote struct {
	cfg     RemoteConfig
	client  *http.Client
	breaker *resilience.Breaker
	retry   resilience.RetryConfig
}

// NewRemote creates a recognition service client with circuit protection.
func NewRemote(cfg RemoteConfig) *Remote {
	return &Remote{
		cfg:     cfg,
		client:  &http.Client{},
		breaker: resilience.New(resilience.FastConfig()),
		retry:   resilience.RecognitionRetryConfig(),
	}
}

type recognizeRequest struct {
	Model string `json:"model,omitempty"`
	Image string `json:"image"` // base64 PNG
}

type recognizeResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Recognize sends the prepared frame to the service. A frame with no
// encounter evidence yields an empty Result, not an error.
func (r *Remote) Recognize(ctx context.Context, f frame.Frame) (Result, error) {
	data, err := frame.EncodePNG(frame.Prepare(f.Image))
	if err != nil {
		return Result{}, apperrors.Wrap(err, apperrors.CodeRecognitionFailed, "encode frame")
	}

	var resp recognizeResponse
	err = r.breaker.Execute(func() error {
		return resilience.Retry(ctx, r.retry, func() error {
			var callErr error
			resp, callErr = r.post(ctx, data)
			return callErr
		})
	})
	if err != nil {
		switch {
		case errors.Is(err, resilience.ErrOpen):
			return Result{}, apperrors.Wrap(err, apperrors.CodeServiceUnavailable, "recognition circuit open")
		case errors.Is(err, context.DeadlineExceeded):
			return Result{}, apperrors.Wrap(err, apperrors.CodeRecognitionTimeout, "recognition budget exceeded")
		default:
			return Result{}, err
		}
	}

	label := ExtractLabel(resp.Text)
	if label == "" {
		return Result{FrameTime: f.Timestamp}, nil
	}
	return Result{Label: label, Confidence: clamp01(resp.Confidence), FrameTime: f.Timestamp}, nil
}

// post performs a single request to the recognition endpoint.
func (r *Remote) post(ctx context.Context, imageData []byte) (recognizeResponse, error) {
	payload, err := json.Marshal(recognizeRequest{
		Model: r.cfg.Model,
		Image: base64.StdEncoding.EncodeToString(imageData),
	})
	if err != nil {
		return recognizeResponse{}, apperrors.Wrap(err, apperrors.CodeRecognitionFailed, "encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return recognizeResponse{}, apperrors.Wrap(err, apperrors.CodeRecognitionFailed, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	if r.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.cfg.APIKey)
	}

	httpResp, err := r.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return recognizeResponse{}, apperrors.Wrap(err, apperrors.CodeRecognitionTimeout, "recognition budget exceeded")
		}
		return recognizeResponse{}, apperrors.Wrap(err, apperrors.CodeServiceUnavailable, "recognition service unreachable")
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return recognizeResponse{}, apperrors.Wrap(err, apperrors.CodeServiceUnavailable, "read response")
	}

	if httpResp.StatusCode >= 500 {
		return recognizeResponse{}, apperrors.Newf(apperrors.CodeServiceUnavailable, "recognition service error %d", httpResp.StatusCode)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return recognizeResponse{}, apperrors.Newf(apperrors.CodeRecognitionFailed, "recognition request rejected with %d", httpResp.StatusCode)
	}

	var parsed recognizeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return recognizeResponse{}, apperrors.Wrap(err, apperrors.CodeRecognitionFailed, "decode response")
	}
	return parsed, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
