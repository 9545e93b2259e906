// Package jobs holds background work that runs beside the HTTP server.
//
// Each job has Start and Stop methods and a RunOnce for manual runs:
//
//	cleanup := jobs.NewTokenCleanup(jobs.TokenCleanupConfig{Store: tokenRepo})
//	cleanup.Start()
//	defer cleanup.Stop()
//
// Jobs log failures and keep going; they never take the server down.
package jobs
