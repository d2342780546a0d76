package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// LoginEndpoint starts a login and returns the provider redirect URL
	ProviderURLParam = "provider"
	LoginEndpoint    = "/auth/login/{" + ProviderURLParam + "}"
	// CallbackEndpoint completes a login from the provider callback fragment
	CallbackEndpoint = "/auth/callback"
	// AccountsEndpoint lists the logged-in accounts
	AccountsEndpoint = "/accounts"
	// LogoutEndpoint wipes the session store
	LogoutEndpoint = "/logout"
	// PollsEndpoint creates a new poll signed by the active account
	PollsEndpoint = "/polls"
	// VotesEndpoint is the endpoint for submitting a vote
	VotesEndpoint = "/votes"
	// GroupJoinEndpoint and GroupVotesEndpoint cover group membership and
	// group-scoped votes
	GroupJoinEndpoint  = "/groups/join"
	GroupVotesEndpoint = "/groups/votes"
	// BalanceEndpoint returns the coin balance of an address
	AddressURLParam = "address"
	BalanceEndpoint = "/balance/{" + AddressURLParam + "}"
)
