// Package numerator defines the contract for document auto-numbering.
// Request services depend on Generator; the SQL-backed implementation
// lives in pkg/numerator.
package numerator

// Strategy selects how numbers are allocated.
type Strategy int

const (
	// StrategyStrict issues every number through the database, so the
	// sequence has no gaps. Used for purchases and corrections, where
	// auditors expect contiguous numbering.
	StrategyStrict Strategy = iota

	// StrategyCached reserves a range up front and hands numbers out
	// from memory. A restart loses the unused remainder of the range.
	// Acceptable for withdrawals.
	StrategyCached
)

// Options tune a single generation call.
type Options struct {
	Strategy Strategy
	// RangeSize is how many numbers StrategyCached reserves at once.
	// Zero means the generator's default of 50.
	RangeSize int64
}

// DefaultOptions returns the strict strategy.
func DefaultOptions() *Options {
	return &Options{Strategy: StrategyStrict}
}

// Config describes the shape of generated numbers, e.g. PUR-2026-00042.
type Config struct {
	// Prefix such as "PUR" or "WDR".
	Prefix string

	// IncludeYear inserts the period year between prefix and counter.
	IncludeYear bool

	// PadWidth is the minimum counter width.
	PadWidth int

	// ResetPeriod restarts the counter: "year", "month" or "never".
	ResetPeriod string
}

// DefaultConfig returns yearly-reset five-digit numbering.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		IncludeYear: true,
		PadWidth:    5,
		ResetPeriod: "year",
	}
}
