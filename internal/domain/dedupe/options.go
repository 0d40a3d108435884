package dedupe

// Option applies a configuration option to the deduper.
type Option func(*window)

// WithMaxSize sets how many recent keys are remembered; values below one
// keep the default of one.
func WithMaxSize(maxSize int) Option {
	return func(d *window) {
		if maxSize > 0 {
			d.maxSize = maxSize
		}
	}
}
