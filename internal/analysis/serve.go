package analysis

import (
	"context"

	"github.com/jingnanl/infant-guard/internal/buildinfo"
	"github.com/jingnanl/infant-guard/internal/conf"
)

// Serve runs only the HTTP API, for deployments where a separate device
// records audio and posts features.
func Serve(ctx context.Context, settings *conf.Settings, info *buildinfo.Context) error {
	svc, err := NewServices(ctx, settings, info)
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.ConnectMQTT(ctx); err != nil {
		return err
	}

	srv, err := svc.NewAPIServer()
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
