package mongodb

const (
	ProfilesCollection  = "profiles"
	CampaignsCollection = "campaigns"
	SessionsCollection  = "user_sessions"
)
