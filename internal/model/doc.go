// Package model defines domain entities and data structures for the diary API.
//
// The model package contains struct definitions for domain objects, request types,
// validation rules and error definitions. Models are used across all layers of the
// application.
//
// # Domain Entities
//
//   - Account: identity record holding the email and password hash
//   - UserProfile: the users row carrying nickname and name
//   - Diary: a dated entry tagged with one of five emotions
//   - EmotionTally: per-emotion counts for one user and month
//
// # Sign-up Validation
//
// RegistrationInput.Validate checks every form field independently and returns a
// FieldErrors map with one message per failing field:
//
//	errs := model.RegistrationInput{Email: "a@b.co", Password: "Abc12345!", Nickname: "ab"}.Validate()
//	if len(errs) > 0 {
//	    return model.NewValidationError(errs.List())
//	}
//
// # Error Types
//
// RFC 9457 Problem Details errors are defined in errors.go. The BlockingNotice
// extension tells clients to surface the message as a modal.
package model
