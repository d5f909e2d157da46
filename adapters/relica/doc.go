// Package relica provides repository implementations for the relay engine
// using the Relica query builder.
//
// Supports MySQL, PostgreSQL, and SQLite. The relay log repository maps each
// driver's unique-constraint violation onto relay.ErrDuplicateKey so the
// publish path can recover from concurrent identical submissions, and
// implements the conditional attempt claim that serializes delivery per
// record.
package relica
