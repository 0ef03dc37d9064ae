// Package auth attaches the acting user to every API request.
//
// It supports two modes:
//   - "none": every request acts as the local reader account (default)
//   - "local": accounts with bcrypt passwords, scs session cookies stored in
//     the main database, and bearer API tokens stored as sha256 hashes
//
// Set AUTH_MODE to select the mode. For local mode:
//
//	AUTH_SESSION_SECRET=<hex-32-bytes>  # CSRF key, generated if empty
//	AUTH_SESSION_LIFETIME=24h
//	AUTH_TOKEN_EXPIRY=720h
//	AUTH_BCRYPT_COST=12
//	AUTH_SECURE_COOKIES=true
//
// Handlers read the user with GetUserID, which is never zero behind
// RequireAuth.
package auth
