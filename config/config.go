// Package config defines ConfigProvider, the small options interface that
// tunes decode behavior beyond the hard ModuleLimits ceilings: whether a
// module is large enough to warrant the async.Driver code-section pass,
// and how much stack that goroutine gets.
package config

// ConfigProvider supplies the thresholds async.Driver consults before
// deciding to run the code section on a separate goroutine.
type ConfigProvider interface {
	// AsyncParsingBinarySize is the minimum total module size, in bytes,
	// above which code-section decoding runs asynchronously. Zero
	// disables async parsing entirely.
	AsyncParsingBinarySize() uint32

	// AsyncParsingStackSize is the goroutine stack size hint, in bytes,
	// requested for the async decode pass via debug.SetMaxStack-style
	// accounting; see async.Driver.
	AsyncParsingStackSize() uint32
}

// Defaults is the zero-config ConfigProvider: async parsing kicks in for
// modules over 16 MiB, matching the point at which decode time starts to
// dominate a typical request's latency budget.
type Defaults struct {
	BinarySize uint32
	StackSize  uint32
}

// NewDefaults returns Defaults pre-populated with the module's standard
// async thresholds.
func NewDefaults() Defaults {
	return Defaults{
		BinarySize: 16 << 20,
		StackSize:  8 << 20,
	}
}

func (d Defaults) AsyncParsingBinarySize() uint32 { return d.BinarySize }
func (d Defaults) AsyncParsingStackSize() uint32  { return d.StackSize }
