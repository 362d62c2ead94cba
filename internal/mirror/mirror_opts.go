package mirror

import "go.uber.org/zap"

// Option configures a Builder.
type Option func(*Builder)

// WithScriptURL sets the script the master page includes and redirects to.
func WithScriptURL(url string) Option {
	return func(b *Builder) {
		if url != "" {
			b.scriptURL = url
		}
	}
}

// WithTitle sets the link text of the master page's redirect notice.
func WithTitle(title string) Option {
	return func(b *Builder) {
		if title != "" {
			b.title = title
		}
	}
}

// WithExclude skips entries whose path below the base prefix matches any
// of the doublestar glob patterns. An excluded directory excludes its
// contents.
func WithExclude(patterns ...string) Option {
	return func(b *Builder) {
		b.exclude = append(b.exclude, patterns...)
	}
}

// WithWorkers sets how many links are created concurrently
// (default: GOMAXPROCS). Values below one keep the default.
func WithWorkers(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}
