package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"

	"demandcast/internal/domain"
)

// HTTPPredictor posts feature rows to a remote model server.
//
// Request:  {"features": {"Opening_Stock": 100, ..., "lag_7": 0}}
// Response: {"prediction": 12.5}
type HTTPPredictor struct {
	url    string
	client *http.Client
}

type predictRequest struct {
	Features map[string]float64 `json:"features"`
}

type predictResponse struct {
	Prediction *float64 `json:"prediction"`
	Error      string   `json:"error,omitempty"`
}

func NewHTTPPredictor(url string, client *http.Client) (*HTTPPredictor, error) {
	if url == "" {
		return nil, errors.WithHint(
			errors.New("predictor url is empty"),
			"Set predictor.url when predictor.kind is http.",
		)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPPredictor{url: url, client: client}, nil
}

func (p *HTTPPredictor) Predict(ctx context.Context, f domain.Features) (float64, error) {
	body, err := json.Marshal(predictRequest{Features: f.Map()})
	if err != nil {
		return 0, errors.Wrap(err, "marshal features")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return 0, errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, errors.Wrap(err, "read response")
	}
	if resp.StatusCode != http.StatusOK {
		return 0, errors.Newf("predictor returned %d: %s", resp.StatusCode, string(respBody))
	}

	var out predictResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return 0, errors.Wrap(err, "decode response")
	}
	if out.Error != "" {
		return 0, errors.Newf("predictor error: %s", out.Error)
	}
	if out.Prediction == nil {
		return 0, errors.New("predictor response has no prediction")
	}
	return *out.Prediction, nil
}
