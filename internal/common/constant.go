package common

const (
	// AuthorizationHeader carries "Bearer <token>" on every protected call.
	AuthorizationHeader = "Authorization"

	// BearerPrefix precedes the raw token in AuthorizationHeader.
	BearerPrefix = "Bearer "

	// RevocationKeyPrefix is prepended to a raw token to form its revocation key.
	RevocationKeyPrefix = "bl_"

	// RefreshTokenField is the request field holding a refresh token.
	RefreshTokenField = "refreshtoken"
)
