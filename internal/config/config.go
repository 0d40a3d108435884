// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Paths may start with "~", which Load expands to the home directory.
// - External errors are wrapped with this package's sentinel kinds.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// HostURL is the websocket endpoint of the host application. Empty runs
	// against the local asset directory instead.
	HostURL string `koanf:"host_url"`
	// HostAPIVersion constrains the host version, e.g. "^1.0.0".
	HostAPIVersion string `koanf:"host_api_version"`
	// HostCallTimeoutMS bounds one host call.
	HostCallTimeoutMS int `koanf:"host_call_timeout_ms"`

	// AssetDir is the root of the local host.
	AssetDir string `koanf:"asset_dir"`
	// AssetBaseURL makes local asset URLs network URLs.
	AssetBaseURL string `koanf:"asset_base_url"`
	// PreferenceFile stores the local host preferences.
	PreferenceFile string `koanf:"preference_file"`
	// ExportDir receives local exports.
	ExportDir string `koanf:"export_dir"`
	// ScoreboardFile is installed at startup by the local host.
	ScoreboardFile string `koanf:"scoreboard_file"`

	// BrandAsset and FontAsset are asset paths resolved at startup.
	BrandAsset string `koanf:"brand_asset"`
	FontAsset  string `koanf:"font_asset"`

	// DefaultScale applies when a request names none; 1 to 4.
	DefaultScale float64 `koanf:"default_scale"`
	// DecodeConcurrency bounds concurrent image decodes.
	DecodeConcurrency int `koanf:"decode_concurrency"`
	// BlobPrefix is the URL path ephemeral handles are served under.
	BlobPrefix string `koanf:"blob_prefix"`
	// QueueSize bounds pending scoreboard pushes.
	QueueSize int `koanf:"queue_size"`

	// DedupeWindow is how many recent pushes a new one is compared against.
	DedupeWindow int `koanf:"dedupe_window"`

	// MetricsNamespace prefixes every exported metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`
	// MetricsInstance, when set, labels every metric with instance=<value>.
	MetricsInstance string `koanf:"metrics_instance"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		HostAPIVersion:    "^1.0.0",
		HostCallTimeoutMS: 10_000,
		AssetDir:          "./assets",
		PreferenceFile:    "~/.aol-b30/preference.yaml",
		ExportDir:         "~/.aol-b30/exports",
		ScoreboardFile:    "scoreboard.json",
		BrandAsset:        "img/title.png",
		FontAsset:         "fonts/exo.ttf",
		DefaultScale:      2,
		DecodeConcurrency: 8,
		BlobPrefix:        "/blob/",
		QueueSize:         16,
		DedupeWindow:      1,
		MetricsNamespace:  "aol",
	}
}
