package srcview

import "go.uber.org/zap"

// Option configures an Archive.
type Option func(*Archive)

// WithBlockSize sets the framing unit used to read the archive (default:
// 512). It must match the block size the archive was written with.
// Values <= 0 use the default.
func WithBlockSize(n int) Option {
	return func(a *Archive) {
		a.blockSize = n
	}
}

// WithMemberOpener replaces the extraction pipeline.
func WithMemberOpener(m MemberOpener) Option {
	return func(a *Archive) {
		a.members = m
	}
}

// WithScanHook registers a function called after every scan.
func WithScanHook(fn ScanHook) Option {
	return func(a *Archive) {
		a.hook = fn
	}
}

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Archive) {
		a.logger = logger
	}
}
