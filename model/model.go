// Package model contains the domain models for the relay delivery engine.
package model

// tablePrefix is prepended to all relay table names.
const tablePrefix = "relay_"
