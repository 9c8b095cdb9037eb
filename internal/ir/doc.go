// Package ir provides the rule-set data model for reach.
//
// This package contains type definitions and their JSON codecs only. All
// other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Rule is a closed sum type; the decoder maps unknown nodes to Invalid
//   - NO float types anywhere - use int64 for numbers
//   - All JSON tags use snake_case
//   - Canonical JSON (RFC 8785, NFC strings) for hashing and golden output
package ir
