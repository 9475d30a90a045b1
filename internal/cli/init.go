package cli

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/fpang/noteclean/internal/auth"
	"github.com/fpang/noteclean/internal/awsboot"
	"github.com/fpang/noteclean/internal/config"
	"github.com/fpang/noteclean/internal/editor"
	"github.com/fpang/noteclean/internal/s3util"
)

// Clients are the remote collaborators shared by the commands.
type Clients struct {
	Editor *editor.Client
	// Exporter is nil when no S3 bucket is configured or AWS is unavailable.
	Exporter *s3util.Exporter
	HasKey   bool
}

// InitClients resolves the API key and builds the editor and the optional
// S3 exporter. A missing key is only a warning: each edit then fails and is
// reported per page.
func InitClients(ctx context.Context, cfg *config.Config) Clients {
	var params auth.ParameterGetter
	var out Clients

	if os.Getenv(auth.EnvSSMParam) != "" || cfg.ExportEnabled() {
		aws, err := awsboot.InitAWS(ctx, cfg.Storage.Region)
		if err != nil {
			log.Warn().Err(err).Msg("AWS unavailable, SSM key lookup and S3 export disabled")
		} else {
			params = aws.SSM
			if s3c := awsboot.InitS3(aws.Config, cfg.Storage.S3Bucket, cfg.Storage.S3Prefix); s3c != nil {
				out.Exporter = &s3util.Exporter{
					Client:    s3c.Client,
					Presigner: s3c.Presigner,
					Bucket:    s3c.Bucket,
					Prefix:    s3c.Prefix,
					TTL:       cfg.Storage.PresignTTL,
				}
			}
		}
	}

	apiKey, err := auth.GetAPIKey(ctx, params)
	if err != nil {
		log.Warn().Err(err).Msg("No Gemini API key configured; every edit will fail")
	}
	out.HasKey = apiKey != ""
	out.Editor = editor.NewFromAPIKey(ctx, apiKey,
		editor.WithModel(cfg.Gemini.Model),
		editor.WithRequestTimeout(cfg.Gemini.RequestTimeout),
	)
	log.Debug().Str("model", out.Editor.Model()).Msg("Gemini editor initialized")
	return out
}
