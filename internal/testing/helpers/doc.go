// Package helpers provides test utility functions for the diary API.
//
// # JWT Helpers
//
// Mint access tokens for fixture accounts. The backing service validates
// them, so it can be wired into a token service under test:
//
//	jwtHelper := helpers.NewJWTHelper(t)
//	token := jwtHelper.Token(t, account)
//	expired := jwtHelper.ExpiredToken(t, account)
//
// # Request Helpers
//
//	rr := helpers.NewRequest(t, http.MethodPost, "/v1/diaries").
//	    WithAuth(jwtHelper, account).
//	    WithBody(body).
//	    Do(router)
//
// # Assertion Helpers
//
//	helpers.AssertValidationError(t, rr, "title")
//	helpers.AssertProblemDetails(t, rr, http.StatusConflict, model.ErrCodeAlreadyExists)
//	helpers.AssertRecordExists(t, db, "diary:abc")
//	helpers.AssertRecordNotExists(t, db, "diary:abc")
package helpers
