package picker

import "github.com/okian/aol-b30/pkg/logger"

// Option applies a configuration option to a Controller.
type Option func(*settings)

type settings struct {
	logger logger.Logger
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}
