// Package authapi is the narrow network boundary the session engine consumes:
// login, registration, profile lookup, token refresh and logout.
//
// [Client] is the interface the engine depends on. [HTTPClient] is a JSON over
// HTTP implementation with configurable endpoint paths. Server failures come
// back as [*APIError], which unwraps to [ErrUnauthorized] for 401 responses
// and to [ErrTokenReuse] when the server reports a replayed refresh token.
// Transport failures match [ErrNetwork].
package authapi
