package mongodb

const (
	ClientsCollection       = "oauth_clients"        // Registered OAuth clients
	CodesCollection         = "oauth_auth_codes"     // Authorization codes
	RefreshTokensCollection = "oauth_refresh_tokens" // Rotating refresh tokens
	UsersCollection         = "oauth_users"          // Operator identity
)
