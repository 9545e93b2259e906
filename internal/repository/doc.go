// Package repository implements the data access layer for the diary API.
//
// Each repository wraps a database.Database and runs parameterized SurrealQL
// for one collection:
//
//   - AccountRepository: account (identity records)
//   - ProfileRepository: users (profile rows written at sign-up)
//   - DiaryRepository: diary (entries and the monthly emotion selection)
//   - TokenRepository: refresh_token
//
// Lookups return (nil, nil) when a record does not exist so services can
// decide which not-found error to surface. A unique index violation on
// insert is reported as database.ErrDuplicate.
package repository
