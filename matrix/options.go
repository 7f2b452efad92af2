// SPDX-License-Identifier: MIT

// Package matrix: functional configuration for Dense construction and the
// numeric policy. This file defines:
//   - Option / Options (functional options with internal state),
//   - documented defaults (constants),
//   - WithX constructors with strong validation (panic on nonsensical values),
//   - gatherOptions helper (internal).
//
// Design goals:
//   - Deterministic behavior: no global state, no implicit randomness.
//   - Safe by construction: panic only on invalid parameters (programmer error).
package matrix

import "math"

// ---------- Defaults (single source of truth) ----------

const (
	// DefaultRelTol is the relative tolerance used when comparing a distributed
	// result against the sequential reference.
	DefaultRelTol = 1e-9

	// DefaultAbsTol is the absolute tolerance paired with DefaultRelTol.
	DefaultAbsTol = 1e-12

	// DefaultValidateNaNInf toggles strict finite-value validation in Set.
	// Buffers filled through Data()/FromData bypass the check; it guards the
	// element-wise surface only.
	DefaultValidateNaNInf = true
)

const panicTolInvalid = "matrix: WithTolerance: tolerances must be finite, non-negative"

// Option mutates internal options. Safe to apply repeatedly (idempotent).
type Option func(*Options)

// Options stores the effective configuration after applying Option setters.
type Options struct {
	rtol           float64 // >= 0; DefaultRelTol
	atol           float64 // >= 0; DefaultAbsTol
	validateNaNInf bool    // DefaultValidateNaNInf
}

// WithTolerance sets the (rtol, atol) pair used by Equal.
// Panics when either tolerance is negative, NaN or Inf.
func WithTolerance(rtol, atol float64) Option {
	if !finiteNonNeg(rtol) || !finiteNonNeg(atol) {
		panic(panicTolInvalid)
	}

	return func(o *Options) {
		o.rtol = rtol
		o.atol = atol
	}
}

// WithValidateNaNInf enables or disables NaN/Inf rejection in Dense.Set.
func WithValidateNaNInf(on bool) Option {
	return func(o *Options) { o.validateNaNInf = on }
}

// defaultOptions returns the zero-config baseline.
func defaultOptions() Options {
	return Options{
		rtol:           DefaultRelTol,
		atol:           DefaultAbsTol,
		validateNaNInf: DefaultValidateNaNInf,
	}
}

// gatherOptions folds opts over the defaults in argument order (last wins).
func gatherOptions(opts ...Option) Options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	return o
}

func finiteNonNeg(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0) && x >= 0
}
