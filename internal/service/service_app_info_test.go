package service

import (
	"context"
	"testing"

	"github.com/MKhiriev/go-custody-ledger/internal/config"
	"github.com/MKhiriev/go-custody-ledger/internal/logger"
	"github.com/MKhiriev/go-custody-ledger/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppInfoService(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.App
		build   models.AppBuildInfo
		want    models.VersionResponse
		wantErr error
	}{
		{
			name:  "config version",
			cfg:   config.App{Version: "1.0.0"},
			build: models.NewAppBuildInfo("", "2026-04-01", "abc123"),
			want:  models.VersionResponse{Version: "1.0.0", BuildDate: "2026-04-01", BuildCommit: "abc123"},
		},
		{
			name:  "config version overrides build version",
			cfg:   config.App{Version: "2.5.1"},
			build: models.NewAppBuildInfo("2.5.0", "", ""),
			want:  models.VersionResponse{Version: "2.5.1"},
		},
		{
			name:  "build version only",
			build: models.NewAppBuildInfo("0.9.0", "", "def"),
			want:  models.VersionResponse{Version: "0.9.0", BuildCommit: "def"},
		},
		{
			name:    "no version at all",
			wantErr: ErrVersionIsNotSpecified,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewAppInfoService(tt.cfg, tt.build, logger.Nop())
			if tt.wantErr != nil {
				assert.Nil(t, svc)
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, svc.GetAppVersion(context.Background()))
		})
	}
}
