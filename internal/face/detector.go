package face

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/jingnanl/infant-guard/internal/conf"
	"github.com/jingnanl/infant-guard/internal/errors"
	"github.com/jingnanl/infant-guard/internal/httpclient"
	"github.com/jingnanl/infant-guard/internal/logger"
)

// detectRequest mirrors the DetectFaces request shape.
type detectRequest struct {
	Image      detectImage `json:"Image"`
	Attributes []string    `json:"Attributes"`
}

type detectImage struct {
	Bytes string `json:"Bytes"`
}

// HTTPDetector calls a DetectFaces compatible HTTP endpoint.
type HTTPDetector struct {
	client   *httpclient.Client
	endpoint string
	log      logger.Logger
}

// NewHTTPDetector creates a detector for the configured face service.
func NewHTTPDetector(settings conf.FaceSettings) (*HTTPDetector, error) {
	if settings.Service.Endpoint == "" {
		return nil, errors.Newf("face service endpoint is not configured").
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Build()
	}
	cfg := httpclient.FromEndpoint(componentName, settings.Service)
	return NewHTTPDetectorWithClient(httpclient.New(&cfg), settings.Service.Endpoint), nil
}

// NewHTTPDetectorWithClient creates a detector using an existing client.
func NewHTTPDetectorWithClient(client *httpclient.Client, endpoint string) *HTTPDetector {
	return &HTTPDetector{
		client:   client,
		endpoint: endpoint,
		log:      GetLogger(),
	}
}

// Client returns the underlying HTTP client.
func (d *HTTPDetector) Client() *httpclient.Client {
	return d.client
}

// Detect submits image and summarises the first face in the response.
func (d *HTTPDetector) Detect(ctx context.Context, image []byte) (Analysis, error) {
	if len(image) == 0 {
		return Analysis{}, errors.New(ErrNoImage).
			Component(componentName).
			Category(errors.CategoryValidation).
			Build()
	}

	start := time.Now()
	body, err := d.client.PostJSON(ctx, d.endpoint, detectRequest{
		Image:      detectImage{Bytes: base64.StdEncoding.EncodeToString(image)},
		Attributes: []string{"ALL"},
	})
	if err != nil {
		return Analysis{}, errors.New(err).
			Component(componentName).
			Category(errors.CategoryFaceDetection).
			Timing("detect_faces", time.Since(start)).
			Build()
	}

	analysis, err := ParseDetectResponse(body)
	if err != nil {
		return Analysis{}, err
	}

	d.log.Debug("face detection completed",
		logger.Bool("detected", analysis.Detected),
		logger.String("emotion", analysis.DominantEmotion()),
		logger.Float64("confidence", analysis.Confidence),
		logger.Duration("elapsed", time.Since(start)))
	return analysis, nil
}
