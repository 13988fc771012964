//go:build ruleguard

// Package gorules contains custom linting rules for golangci-lint via ruleguard.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// TestingContext flags root contexts created inside tests. t.Context() is
// cancelled when the test ends, which stops monitor loops and HTTP clients.
func TestingContext(m dsl.Matcher) {
	m.Match(`context.Background()`, `context.TODO()`).
		Where(m.File().Name.Matches(`_test\.go$`)).
		Report("use t.Context() in tests instead of a root context")
}

// TimeSince prefers time.Since and time.Until over manual subtraction.
func TimeSince(m dsl.Matcher) {
	m.Match(`time.Now().Sub($t)`).
		Report("use time.Since($t)").
		Suggest("time.Since($t)")

	m.Match(`$t.Sub(time.Now())`).
		Report("use time.Until($t)").
		Suggest("time.Until($t)")
}

// WaitGroupGo flags the Add/Done goroutine pattern that wg.Go replaces.
func WaitGroupGo(m dsl.Matcher) {
	m.Match(`go func() { defer $wg.Done(); $*_ }()`).
		Where(m["wg"].Type.Is("*sync.WaitGroup")).
		Report("use $wg.Go(func() { ... })").
		Suggest("$wg.Go(func() { $*_ })")
}

// LoggerFields keeps log messages constant so they can be grouped; variable
// parts belong in structured fields.
func LoggerFields(m dsl.Matcher) {
	m.Import("github.com/jingnanl/infant-guard/internal/logger")

	m.Match(
		`$log.Debug(fmt.Sprintf($*_), $*_)`,
		`$log.Info(fmt.Sprintf($*_), $*_)`,
		`$log.Warn(fmt.Sprintf($*_), $*_)`,
		`$log.Error(fmt.Sprintf($*_), $*_)`,
	).
		Where(m["log"].Type.Implements("logger.Logger")).
		Report("use a constant message with logger fields instead of fmt.Sprintf")
}

// DateTimeConstants replaces reference-time literals with the named layouts.
func DateTimeConstants(m dsl.Matcher) {
	m.Match(`$t.Format("2006-01-02 15:04:05")`).
		Suggest(`$t.Format(time.DateTime)`).
		Report("use time.DateTime")

	m.Match(`$t.Format("2006-01-02")`).
		Suggest(`$t.Format(time.DateOnly)`).
		Report("use time.DateOnly")

	m.Match(`$t.Format("15:04:05")`).
		Suggest(`$t.Format(time.TimeOnly)`).
		Report("use time.TimeOnly")
}
