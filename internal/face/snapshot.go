package face

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/jingnanl/infant-guard/internal/conf"
	"github.com/jingnanl/infant-guard/internal/errors"
	"github.com/jingnanl/infant-guard/internal/httpclient"
)

// ErrNotAnImage is returned when a snapshot is not a JPEG or PNG image.
var ErrNotAnImage = errors.NewStd("snapshot is not a JPEG or PNG image")

// Snapshotter captures a still image of the crib.
type Snapshotter struct {
	source string
	client *httpclient.Client
}

// NewSnapshotter returns nil when no snapshot source is configured.
func NewSnapshotter(settings conf.SnapshotSettings) *Snapshotter {
	if settings.Source == "" {
		return nil
	}
	cfg := httpclient.Config{Service: "snapshot", DefaultTimeout: settings.Timeout}
	return &Snapshotter{source: settings.Source, client: httpclient.New(&cfg)}
}

// Source returns the configured URL or file path.
func (s *Snapshotter) Source() string {
	return s.source
}

// Capture fetches the current image and returns its bytes and MIME type.
func (s *Snapshotter) Capture(ctx context.Context) (image []byte, mimeType string, err error) {
	if isRemote(s.source) {
		image, _, err = s.client.Get(ctx, s.source)
		if err != nil {
			return nil, "", err
		}
	} else {
		image, err = os.ReadFile(s.source)
		if err != nil {
			return nil, "", errors.New(err).
				Component(componentName).
				Category(errors.CategoryFileIO).
				FileContext(s.source, 0).
				Build()
		}
	}

	// Camera servers often report a generic content type, so sniff instead.
	mimeType = http.DetectContentType(image)
	if mimeType != "image/jpeg" && mimeType != "image/png" {
		return nil, "", errors.New(ErrNotAnImage).
			Component(componentName).
			Category(errors.CategoryValidation).
			Context("detected_type", mimeType).
			Build()
	}
	return image, mimeType, nil
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}
