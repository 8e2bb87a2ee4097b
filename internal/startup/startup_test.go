package startup

import (
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	assert.Equal(t, Version, info.Version)
	assert.Equal(t, Commit, info.Commit)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS, info.OS)
	assert.Equal(t, runtime.GOARCH, info.Arch)
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(map[string]string{"ADMIN_PASSWORD": "secret"})
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "static/uploads", cfg.UploadDir)
	assert.Equal(t, "static/thumbnails", cfg.ThumbnailDir)
	assert.Equal(t, "admin", cfg.AdminUsername)
	assert.Equal(t, int64(128*1024*1024), cfg.MaxUploadBytes)
	assert.Equal(t, 800, cfg.ThumbnailMaxDimension)
	assert.Equal(t, time.Second, cfg.VideoFrameOffset)
	assert.Equal(t, 30*time.Second, cfg.VideoFrameTimeout)
	assert.Equal(t, 30*time.Second, cfg.CatalogCacheTTL)
	assert.Equal(t, 10, cfg.AdminPageSize)
	assert.True(t, cfg.MetricsEnabled)
	assert.True(t, cfg.WatchUploads)
	assert.False(t, cfg.UseVips)
	assert.Equal(t, time.Minute, cfg.ArchiveWriteTimeout)
	assert.Equal(t, int64(0), cfg.MemoryLimit)
	assert.InDelta(t, 0.85, cfg.MemoryRatio, 1e-9)
}

func TestParseOverrides(t *testing.T) {
	cfg, err := Parse(map[string]string{
		"ADMIN_PASSWORD_HASH":     "$2a$10$abcdefghijklmnopqrstuv",
		"UPLOAD_DIR":              "/srv/uploads",
		"THUMBNAIL_MAX_DIMENSION": "320",
		"VIDEO_FRAME_TIMEOUT":     "5s",
		"CATALOG_CACHE_TTL":       "0s",
		"METRICS_ENABLED":         "false",
	})
	require.NoError(t, err)

	assert.Equal(t, "/srv/uploads", cfg.UploadDir)
	assert.Equal(t, 320, cfg.ThumbnailMaxDimension)
	assert.Equal(t, 5*time.Second, cfg.VideoFrameTimeout)
	assert.Equal(t, time.Duration(0), cfg.CatalogCacheTTL)
	assert.False(t, cfg.MetricsEnabled)
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name    string
		environ map[string]string
		wantErr string
	}{
		{
			name:    "Missing credential",
			environ: map[string]string{},
			wantErr: "ADMIN_PASSWORD or ADMIN_PASSWORD_HASH",
		},
		{
			name:    "Zero thumbnail bound",
			environ: map[string]string{"ADMIN_PASSWORD": "x", "THUMBNAIL_MAX_DIMENSION": "0"},
			wantErr: "THUMBNAIL_MAX_DIMENSION",
		},
		{
			name:    "Quality out of range",
			environ: map[string]string{"ADMIN_PASSWORD": "x", "THUMBNAIL_QUALITY": "101"},
			wantErr: "THUMBNAIL_QUALITY",
		},
		{
			name:    "Zero video timeout",
			environ: map[string]string{"ADMIN_PASSWORD": "x", "VIDEO_FRAME_TIMEOUT": "0s"},
			wantErr: "VIDEO_FRAME_TIMEOUT",
		},
		{
			name:    "Memory ratio above one",
			environ: map[string]string{"ADMIN_PASSWORD": "x", "MEMORY_RATIO": "1.5"},
			wantErr: "MEMORY_RATIO",
		},
		{
			name:    "Malformed duration",
			environ: map[string]string{"ADMIN_PASSWORD": "x", "CATALOG_CACHE_TTL": "soon"},
			wantErr: "CatalogCacheTTL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.environ)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPrepareDirectories(t *testing.T) {
	root := t.TempDir()
	cfg := &Config{
		UploadDir:    filepath.Join(root, "static", "uploads"),
		ThumbnailDir: filepath.Join(root, "static", "thumbnails"),
	}

	require.NoError(t, PrepareDirectories(cfg))

	for _, dir := range []string{cfg.UploadDir, cfg.ThumbnailDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.True(t, filepath.IsAbs(dir))
		assert.NoFileExists(t, filepath.Join(dir, ".write-test"))
	}
}

func TestPrepareDirectoriesRejectsFile(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "uploads")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	cfg := &Config{UploadDir: file, ThumbnailDir: filepath.Join(root, "thumbs")}
	err := PrepareDirectories(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestGetRoutes(t *testing.T) {
	r := mux.NewRouter()
	noop := func(http.ResponseWriter, *http.Request) {}
	r.HandleFunc("/upload", noop).Methods("POST")
	r.HandleFunc("/admin", noop).Methods("GET")
	r.HandleFunc("/delete/{name}", noop).Methods("DELETE")

	routes, err := GetRoutes(r)
	require.NoError(t, err)
	require.Len(t, routes, 3)

	assert.Equal(t, RouteInfo{Method: "GET", Path: "/admin"}, routes[0])
	assert.Equal(t, RouteInfo{Method: "DELETE", Path: "/delete/{name}"}, routes[1])
	assert.Equal(t, RouteInfo{Method: "POST", Path: "/upload"}, routes[2])
}

func TestCheckFFmpegMissingBinary(t *testing.T) {
	err := CheckFFmpeg(filepath.Join(t.TempDir(), "no-such-ffmpeg"))
	require.Error(t, err)
}
