package common

// AuthorizationHeaderName is the HTTP header carrying the session token.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the session token in the Authorization header.
const BearerPrefix = "Bearer "

// ConfirmationTokenSize is the number of random bytes in an email confirmation token.
const ConfirmationTokenSize = 32
