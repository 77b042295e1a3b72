// Package models defines the domain entities of the achievement tracker.
//
// The package contains two kinds of types:
//
// 1. Stored entities: items persisted by a store implementation
//   - [Achievement] : a trackable goal keyed by (title, category) with current/max progress and an optional image
//   - [Account] : a remote user with a KMS-encrypted password and an [AccountType]
//
// 2. Derived values: computed from stored entities, never persisted
//   - [CategoryProgress] : aggregate completion of one category, built by [Completion]
//   - [Session] : the in-memory login state of the running program
//
// Struct tags carry both the DynamoDB attribute names (dynamodbav) and the JSON names used for CLI output.
package models
