// Package quota turns the ledger's aggregate access count into an advisory.
package quota

import (
	"github.com/go-playground/validator/v10"
)

// Level is the severity of a quota advisory.
type Level string

const (
	LevelOK      Level = "ok"
	LevelWarn    Level = "warn"
	LevelBlocked Level = "blocked"
)

const (
	DefaultHardLimit    int64   = 200_000
	DefaultWarnFraction float64 = 0.8

	NoticeBlocked = "access limit reached, retry next period."
	NoticeWarn    = "approaching access limit."
)

var validate = validator.New()

// Advisory is derived from the total access count on every query and never stored.
type Advisory struct {
	Level  Level  `json:"level"`
	Notice string `json:"notice,omitempty"`
}

// Blocked reports whether the advisory refuses admission.
func (a Advisory) Blocked() bool {
	return a.Level == LevelBlocked
}

// Monitor evaluates totals against fixed thresholds.
type Monitor struct {
	HardLimit    int64   `validate:"gt=0"`
	WarnFraction float64 `validate:"gt=0,lte=1"`
}

// NewMonitor returns a Monitor with the default thresholds.
func NewMonitor() Monitor {
	return Monitor{
		HardLimit:    DefaultHardLimit,
		WarnFraction: DefaultWarnFraction,
	}
}

// Validate checks the thresholds.
func (m Monitor) Validate() error {
	return validate.Struct(m)
}

// WarnThreshold is the total above which a warning is issued.
func (m Monitor) WarnThreshold() float64 {
	return m.WarnFraction * float64(m.HardLimit)
}

// Evaluate maps total to an advisory. Both comparisons are strict, so a total
// equal to HardLimit is still only a warning.
func (m Monitor) Evaluate(total int64) Advisory {
	switch {
	case total > m.HardLimit:
		return Advisory{Level: LevelBlocked, Notice: NoticeBlocked}
	case float64(total) > m.WarnThreshold():
		return Advisory{Level: LevelWarn, Notice: NoticeWarn}
	default:
		return Advisory{Level: LevelOK}
	}
}

// Usage is the fraction of HardLimit consumed by total.
func (m Monitor) Usage(total int64) float64 {
	if m.HardLimit <= 0 {
		return 0
	}
	return float64(total) / float64(m.HardLimit)
}
