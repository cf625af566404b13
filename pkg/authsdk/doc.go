/*
Package authsdk is a small client for the rollcall authentication service.

# SDKClient vs Session

SDKClient covers the public endpoints:

	client := authsdk.NewSDKClient("https://auth.example.com")

	health, err := client.Health(ctx)

	_, err = client.Register(ctx, authsdk.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct-horse",
	})

	session, err := client.AuthenticateWithPassword(ctx, "alice", "correct-horse")

A Session holds the token pair and refreshes the access token when it is
about to expire. Refresh tokens are single use; the session swaps in the
rotated token on every refresh.

	me, err := session.Me(ctx)

	var employees []Employee
	err = session.Do(ctx, http.MethodGet, "/employees", nil, &employees, http.StatusOK)

	err = session.Logout(ctx)

# Errors

Every non-success response is returned as an *APIError carrying the status,
message and any per-field validation failures. StatusCode(err) extracts the
status without a type assertion.

# Thread Safety

Sessions are safe for concurrent use. Concurrent callers that race on an
expired token share a single refresh.
*/
package authsdk
