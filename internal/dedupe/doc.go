// Package dedupe suppresses broker message redeliveries within a time
// window, keeping the delivery pipeline's at-most-once promise against an
// at-least-once upstream.
package dedupe
