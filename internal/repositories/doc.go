// Package repositories implements the two storage backends of the achievement tracker.
//
// Both backends implement [AchievementStore]; the remote one also serves accounts through [AccountStore].
//
// Key Implementations:
//   - [DynamoRepository] : DynamoDB tables Achieve_Achievements (title + category) and Achieve_Account (username)
//   - [SQLiteRepository] : the local store, a SQLite database migrated by [shared.RunMigrations]
//
// Scans against DynamoDB follow LastEvaluatedKey until the table is exhausted. Lookups that find nothing return
// [shared.ErrAchievementNotFound] or [shared.ErrAccountNotFound] so callers can tell absence from failure.
//
// Uniqueness of (title, category) is checked by the caller with a point lookup before a create. DynamoDB writes
// are unconditional, so two concurrent creators can still race; SQLite rejects the second insert with
// [shared.ErrDuplicateAchievement].
package repositories
