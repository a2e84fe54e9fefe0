package ameritrade

// tokenResponse is the body of a successful POST /v1/oauth2/token. The
// refresh fields are present only when the server issued or rotated a
// refresh token.
type tokenResponse struct {
	AccessToken           string `json:"access_token"`
	ExpiresIn             int64  `json:"expires_in"`
	TokenType             string `json:"token_type"`
	Scope                 string `json:"scope"`
	RefreshToken          string `json:"refresh_token"`
	RefreshTokenExpiresIn int64  `json:"refresh_token_expires_in"`
}

// UserPrincipals is the subset of GET /v1/userprincipals consumed when
// bootstrapping a streaming channel.
type UserPrincipals struct {
	UserID       string             `json:"userId"`
	PrimaryAccID string             `json:"primaryAccountId"`
	Accounts     []PrincipalAccount `json:"accounts"`
	StreamerInfo StreamerInfo       `json:"streamerInfo"`
}

// PrincipalAccount carries the per-account streamer identity fields.
type PrincipalAccount struct {
	AccountID         string `json:"accountId"`
	DisplayName       string `json:"displayName"`
	Company           string `json:"company"`
	Segment           string `json:"segment"`
	AccountCdDomainID string `json:"accountCdDomainId"`
}

// StreamerInfo carries the streaming connection parameters issued with a
// principals document.
type StreamerInfo struct {
	StreamerSocketURL string `json:"streamerSocketUrl"`
	Token             string `json:"token"`
	TokenTimestamp    string `json:"tokenTimestamp"`
	UserGroup         string `json:"userGroup"`
	AccessLevel       string `json:"accessLevel"`
	ACL               string `json:"acl"`
	AppID             string `json:"appId"`
}
