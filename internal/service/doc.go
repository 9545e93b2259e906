// Package service implements the business logic of the diary API.
//
// Services sit between HTTP handlers and repositories. Each one is built
// from a config struct holding its dependencies and declares the repository
// interfaces it needs, so tests can substitute hand-written mocks:
//
//	identity := NewIdentityService(IdentityServiceConfig{
//	    AccountRepo:  accountRepository,
//	    ProfileRepo:  profileRepository,
//	    TokenService: tokens,
//	})
//	signUp := NewRegistrationWorkflow(RegistrationWorkflowConfig{
//	    Accounts: identity,
//	    Profiles: profileRepository,
//	})
//	outcome := signUp.Submit(ctx, input, navigator)
//
// # Errors
//
// Sentinel errors live in errors.go and are compared with errors.Is.
// Account creation failures are *IdentityError values carrying a kind and
// a user-facing message. Input validation failures are returned as
// *model.ProblemDetails.
package service
