// Package logs matches application log text against known failure
// signatures.
package logs

import (
	"bufio"
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/helmcode/healctl/pkg/detector"
	"github.com/helmcode/healctl/pkg/model"
)

const (
	DefaultThreshold    = 5
	DefaultMaxLineBytes = 1 << 20

	excerptLen = 120
)

// Config tunes the log family. Zero values select the defaults.
type Config struct {
	// Threshold is the per-signature count above which a high error rate
	// issue is raised.
	Threshold int
	// MaxLineBytes bounds a single line; longer lines make the artifact
	// malformed.
	MaxLineBytes int
}

func (c Config) withDefaults() Config {
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.MaxLineBytes <= 0 {
		c.MaxLineBytes = DefaultMaxLineBytes
	}
	return c
}

// Line is one log line with its 1-based number.
type Line struct {
	Number int
	Text   string
}

// Log is the parsed form of a log artifact.
type Log struct {
	Lines []Line
}

// Parser returns a parser that splits content into lines. Bytes are kept as
// they are; only a line longer than maxLineBytes makes the log malformed.
func Parser(maxLineBytes int) func(string) (*Log, error) {
	return func(content string) (*Log, error) {
		sc := bufio.NewScanner(strings.NewReader(content))
		sc.Buffer(make([]byte, 0, min(64*1024, maxLineBytes)), maxLineBytes)
		log := &Log{}
		for n := 1; sc.Scan(); n++ {
			log.Lines = append(log.Lines, Line{Number: n, Text: strings.TrimRight(sc.Text(), "\r")})
		}
		if err := sc.Err(); err != nil {
			if errors.Is(err, bufio.ErrTooLong) {
				return nil, model.Malformed(err, "log line %d exceeds %d bytes", len(log.Lines)+1, maxLineBytes)
			}
			return nil, model.Malformed(err, "reading log: %v", err)
		}
		return log, nil
	}
}

// Checks returns the log rule checks in evaluation order.
func Checks(cfg Config) []detector.Check[*Log] {
	cfg = cfg.withDefaults()
	checks := make([]detector.Check[*Log], 0, len(Signatures)+1)
	for _, sig := range Signatures {
		checks = append(checks, detector.Check[*Log]{RuleID: sig.RuleID, Eval: sig.check})
	}
	return append(checks, detector.Check[*Log]{
		RuleID: highErrorRateRule,
		Eval:   highErrorRate(cfg.Threshold),
	})
}

// New returns the log detector family.
func New(cfg Config) *detector.Family[*Log] {
	cfg = cfg.withDefaults()
	return detector.NewFamily(model.CategoryLog, Parser(cfg.MaxLineBytes), Checks(cfg)...)
}

func excerpt(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= excerptLen {
		return s
	}
	cut := excerptLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func lineRef(n int) string {
	return "line " + strconv.Itoa(n)
}
