package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrNoPrediction is returned when the classifier answered without a label.
var ErrNoPrediction = errors.New("classifier returned no prediction")

// --- Gesture classifier (/predict) ---
type PredictReq struct {
	SensorData []float64 `json:"sensor_data"`
}
type PredictResp struct {
	Prediction string `json:"prediction"`
	Error      string `json:"error,omitempty"`
}

func (h *HTTP) Predict(ctx context.Context, url string, features []float64) (string, error) {
	b, _ := json.Marshal(PredictReq{SensorData: features})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(url, "/")+"/predict", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.c.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("predict %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out PredictResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("predict decode: %w", err)
	}
	label := strings.TrimSpace(out.Prediction)
	if label == "" {
		if out.Error != "" {
			return "", fmt.Errorf("%w: %s", ErrNoPrediction, out.Error)
		}
		return "", ErrNoPrediction
	}
	return label, nil
}

// Classifier binds Predict to one endpoint.
type Classifier struct {
	HTTP *HTTP
	URL  string
}

func (c Classifier) Predict(ctx context.Context, features []float64) (string, error) {
	return c.HTTP.Predict(ctx, c.URL, features)
}
