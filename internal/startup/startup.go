package startup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"media-gallery/internal/logging"

	"github.com/caarlos0/env/v11"
	"github.com/gorilla/mux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// Config holds all application configuration. It is built once at process
// start and handed to every component by pointer.
type Config struct {
	Port           string `env:"PORT" envDefault:"8080"`
	MetricsPort    string `env:"METRICS_PORT" envDefault:"9090"`
	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`

	UploadDir    string `env:"UPLOAD_DIR" envDefault:"static/uploads"`
	ThumbnailDir string `env:"THUMBNAIL_DIR" envDefault:"static/thumbnails"`

	AdminUsername     string `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword     string `env:"ADMIN_PASSWORD"`
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`

	// MaxUploadBytes bounds the whole multipart request body
	MaxUploadBytes int64 `env:"MAX_UPLOAD_BYTES" envDefault:"134217728"`

	ThumbnailMaxDimension int           `env:"THUMBNAIL_MAX_DIMENSION" envDefault:"800"`
	ThumbnailQuality      int           `env:"THUMBNAIL_QUALITY" envDefault:"85"`
	FFmpegPath            string        `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	VideoFrameOffset      time.Duration `env:"VIDEO_FRAME_OFFSET" envDefault:"1s"`
	VideoFrameTimeout     time.Duration `env:"VIDEO_FRAME_TIMEOUT" envDefault:"30s"`
	UseVips               bool          `env:"USE_VIPS" envDefault:"false"`
	IngestWorkers         int           `env:"INGEST_WORKERS" envDefault:"0"`

	CatalogCacheTTL time.Duration `env:"CATALOG_CACHE_TTL" envDefault:"30s"`
	WatchUploads    bool          `env:"WATCH_UPLOADS" envDefault:"true"`
	AdminPageSize   int           `env:"ADMIN_PAGE_SIZE" envDefault:"10"`

	// ArchiveWriteTimeout ends a download-all stream whose client stops reading
	ArchiveWriteTimeout time.Duration `env:"ARCHIVE_WRITE_TIMEOUT" envDefault:"60s"`

	MemoryLimit int64   `env:"MEMORY_LIMIT" envDefault:"0"`
	MemoryRatio float64 `env:"MEMORY_RATIO" envDefault:"0.85"`

	LogStaticFiles  bool `env:"LOG_STATIC_FILES" envDefault:"false"`
	LogHealthChecks bool `env:"LOG_HEALTH_CHECKS" envDefault:"false"`
}

// LoadConfig loads configuration from the process environment, prints the
// startup banner and prepares the storage directories.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	cfg, err := Parse(nil)
	if err != nil {
		return nil, err
	}

	logConfig(cfg)

	if err := PrepareDirectories(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse builds a Config from environ, or from the process environment when
// environ is nil, and validates it. It does not touch the filesystem.
func Parse(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and required settings
func (c *Config) Validate() error {
	var errs []error
	if c.AdminPassword == "" && c.AdminPasswordHash == "" {
		errs = append(errs, errors.New("ADMIN_PASSWORD or ADMIN_PASSWORD_HASH must be set"))
	}
	if c.UploadDir == "" || c.ThumbnailDir == "" {
		errs = append(errs, errors.New("UPLOAD_DIR and THUMBNAIL_DIR must not be empty"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes))
	}
	if c.ThumbnailMaxDimension <= 0 {
		errs = append(errs, fmt.Errorf("THUMBNAIL_MAX_DIMENSION must be positive, got %d", c.ThumbnailMaxDimension))
	}
	if c.ThumbnailQuality < 1 || c.ThumbnailQuality > 100 {
		errs = append(errs, fmt.Errorf("THUMBNAIL_QUALITY must be within 1..100, got %d", c.ThumbnailQuality))
	}
	if c.VideoFrameTimeout <= 0 {
		errs = append(errs, fmt.Errorf("VIDEO_FRAME_TIMEOUT must be positive, got %v", c.VideoFrameTimeout))
	}
	if c.VideoFrameOffset < 0 {
		errs = append(errs, fmt.Errorf("VIDEO_FRAME_OFFSET must not be negative, got %v", c.VideoFrameOffset))
	}
	if c.AdminPageSize <= 0 {
		errs = append(errs, fmt.Errorf("ADMIN_PAGE_SIZE must be positive, got %d", c.AdminPageSize))
	}
	if c.IngestWorkers < 0 {
		errs = append(errs, fmt.Errorf("INGEST_WORKERS must not be negative, got %d", c.IngestWorkers))
	}
	if c.ArchiveWriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("ARCHIVE_WRITE_TIMEOUT must be positive, got %v", c.ArchiveWriteTimeout))
	}
	if c.MemoryLimit < 0 {
		errs = append(errs, fmt.Errorf("MEMORY_LIMIT must not be negative, got %d", c.MemoryLimit))
	}
	if c.MemoryRatio <= 0 || c.MemoryRatio > 1 {
		errs = append(errs, fmt.Errorf("MEMORY_RATIO must be within (0, 1], got %v", c.MemoryRatio))
	}
	return errors.Join(errs...)
}

// PrepareDirectories resolves both storage directories to absolute paths,
// creates them and checks they are writable. Both are required.
func PrepareDirectories(cfg *Config) error {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	for _, d := range []struct {
		name string
		path *string
	}{
		{"uploads", &cfg.UploadDir},
		{"thumbnails", &cfg.ThumbnailDir},
	} {
		abs, err := filepath.Abs(*d.path)
		if err != nil {
			return fmt.Errorf("failed to resolve %s directory path: %w", d.name, err)
		}
		*d.path = abs
		logging.Info("  %s directory (absolute): %s", d.name, abs)

		if err := ensureDirectory(abs, d.name); err != nil {
			return fmt.Errorf("%s directory error: %w", d.name, err)
		}
		if err := testWriteAccess(abs); err != nil {
			return fmt.Errorf("%s directory is not writable: %w", d.name, err)
		}
		logging.Info("  [OK] %s directory is writable", d.name)
	}
	return nil
}

func logConfig(cfg *Config) {
	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  UPLOAD_DIR:              %s", cfg.UploadDir)
	logging.Info("  THUMBNAIL_DIR:           %s", cfg.ThumbnailDir)
	logging.Info("  PORT:                    %s", cfg.Port)
	logging.Info("  METRICS_PORT:            %s", cfg.MetricsPort)
	logging.Info("  METRICS_ENABLED:         %v", cfg.MetricsEnabled)
	logging.Info("  ADMIN_USERNAME:          %s", cfg.AdminUsername)
	logging.Info("  ADMIN_PASSWORD_HASH:     %v", cfg.AdminPasswordHash != "")
	logging.Info("  MAX_UPLOAD_BYTES:        %d", cfg.MaxUploadBytes)
	logging.Info("  THUMBNAIL_MAX_DIMENSION: %d", cfg.ThumbnailMaxDimension)
	logging.Info("  FFMPEG_PATH:             %s", cfg.FFmpegPath)
	logging.Info("  VIDEO_FRAME_TIMEOUT:     %v", cfg.VideoFrameTimeout)
	logging.Info("  USE_VIPS:                %v", cfg.UseVips)
	logging.Info("  CATALOG_CACHE_TTL:       %v", cfg.CatalogCacheTTL)
	logging.Info("  WATCH_UPLOADS:           %v", cfg.WatchUploads)
	logging.Info("  ARCHIVE_WRITE_TIMEOUT:   %v", cfg.ArchiveWriteTimeout)
	logging.Info("  MEMORY_LIMIT:            %d", cfg.MemoryLimit)
	logging.Info("  MEMORY_RATIO:            %.2f", cfg.MemoryRatio)
	logging.Info("  LOG_LEVEL:               %s", logging.GetLevel())
}

// LogFFmpegCheck logs whether the frame extractor is usable. Video
// thumbnails degrade to missing (original fallback) when it is not.
func LogFFmpegCheck(ffmpegPath string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("THUMBNAIL DERIVATION")
	logging.Info("------------------------------------------------------------")

	if err := CheckFFmpeg(ffmpegPath); err != nil {
		logging.Warn("  FFmpeg check failed: %v", err)
		logging.Warn("  Video thumbnails will fall back to the original file")
		return
	}
	logging.Info("  [OK] FFmpeg is available")
}

// CheckFFmpeg verifies the ffmpeg binary can be executed
func CheckFFmpeg(ffmpegPath string) error {
	path, err := exec.LookPath(ffmpegPath)
	if err != nil {
		return fmt.Errorf("%s not found in PATH", ffmpegPath)
	}
	logging.Debug("  FFmpeg path: %s", path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, path, "-version").Output()
	if err != nil {
		return fmt.Errorf("failed to get ffmpeg version: %w", err)
	}

	if first, _, _ := strings.Cut(string(output), "\n"); first != "" {
		logging.Debug("  FFmpeg version: %s", strings.TrimSpace(first))
	}
	return nil
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{Method: method, Path: pathTemplate})
		}
		return nil
	})

	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes at debug level
func LogHTTPRoutes(router *mux.Router, logStaticFiles, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}
		logging.Debug("  Registered routes (%d total):", len(routes))
		for _, route := range routes {
			logging.Debug("    %-6s %s", route.Method, route.Path)
		}
	}

	logging.Info("  HTTP logging enabled")
	logging.Info("    Static file logging:  %s", onOff(logStaticFiles))
	logging.Info("    Health check logging: %s", onOff(logHealthChecks))
}

// LogServerStarted logs successful server start
func LogServerStarted(cfg *Config, startupDuration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", startupDuration)
	logging.Info("  Application:     http://0.0.0.0:%s", cfg.Port)
	if cfg.MetricsEnabled {
		logging.Info("  Metrics:         http://0.0.0.0:%s/metrics", cfg.MetricsPort)
	} else {
		logging.Info("  Metrics:         DISABLED")
	}
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs the end of a graceful shutdown
func LogShutdownComplete() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN COMPLETE")
	logging.Info("------------------------------------------------------------")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}

func printBanner() {
	banner := `
------------------------------------------------------------
   __  ___       ___         _____     ____
  /  |/  /__ ___/ (_)__ _   / ___/__ _/ / /__ ______ __
 / /|_/ / -_) _  / / _ '/  / (_ / _ '/ / / -_) __/ // /
/_/  /_/\__/\_,_/_/\_,_/   \___/\_,_/_/_/\__/_/  \_, /
                                                /___/
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}
	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

// WriteAccessOK reports whether dir currently accepts writes. Used by the
// readiness probe.
func WriteAccessOK(dir string) bool {
	return testWriteAccess(dir) == nil
}
