package adapter

// Credentials is the client credential pair used by the auth handshake.
// The secret is never rendered by String, so the value is safe to log.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// NewCredentials creates a credential pair
func NewCredentials(clientID, clientSecret string) Credentials {
	return Credentials{ClientID: clientID, ClientSecret: clientSecret}
}

func (c Credentials) Valid() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

func (c Credentials) String() string {
	if c.ClientSecret == "" {
		return "client_id=" + c.ClientID
	}
	return "client_id=" + c.ClientID + " client_secret=***"
}

func (c Credentials) GoString() string {
	return "adapter.Credentials{" + c.String() + "}"
}

// AuthParams builds the client_credentials grant parameters.
func (c Credentials) AuthParams() map[string]any {
	return map[string]any{
		"grant_type":    "client_credentials",
		"client_id":     c.ClientID,
		"client_secret": c.ClientSecret,
	}
}
