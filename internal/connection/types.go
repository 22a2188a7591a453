package connection

// SSHConfig holds SSH connection details
type SSHConfig struct {
	Host     string `json:"host" mapstructure:"host" yaml:"host"`
	Port     int    `json:"port" mapstructure:"port" yaml:"port"`
	User     string `json:"user" mapstructure:"user" yaml:"user"`
	Password string `json:"password" mapstructure:"password" yaml:"password"`
	KeyPath  string `json:"keyPath" mapstructure:"key_path" yaml:"key_path"`
}

// ConnectionConfig holds Redis connection details including SSH
type ConnectionConfig struct {
	Host     string    `json:"host" mapstructure:"host" yaml:"host" validate:"required"`
	Port     int       `json:"port" mapstructure:"port" yaml:"port" validate:"gte=0,lte=65535"`
	Username string    `json:"username" mapstructure:"username" yaml:"username"`
	Password string    `json:"password" mapstructure:"password" yaml:"password"`
	DB       int       `json:"db" mapstructure:"db" yaml:"db" validate:"gte=0,lte=15"`
	Timeout  int       `json:"timeout" mapstructure:"timeout" yaml:"timeout"` // seconds
	UseSSH   bool      `json:"useSSH" mapstructure:"use_ssh" yaml:"use_ssh"`
	SSH      SSHConfig `json:"ssh" mapstructure:"ssh" yaml:"ssh"`
}

// KeyInfo describes one key shown in a listing
type KeyInfo struct {
	Name   RedisString `json:"name"`
	Type   string      `json:"type,omitempty"`
	TTL    *int64      `json:"ttl,omitempty"`    // -1 means no expiry
	Size   *int64      `json:"size,omitempty"`   // bytes, MEMORY USAGE
	Length *int64      `json:"length,omitempty"` // elements
}

// GetKeysRequest is the body of POST keys
type GetKeysRequest struct {
	Cursor   string `json:"cursor"`
	Count    int    `json:"count"`
	Type     string `json:"type,omitempty"`
	Match    string `json:"match"`
	KeysInfo bool   `json:"keysInfo"`
}

// ShardResponse is one element of the POST keys response array.
// Standalone databases answer with a single element without host/port.
type ShardResponse struct {
	Cursor     Cursor    `json:"cursor"`
	Total      int64     `json:"total"`
	Scanned    int64     `json:"scanned"`
	Keys       []KeyInfo `json:"keys"`
	Host       string    `json:"host,omitempty"`
	Port       int       `json:"port,omitempty"`
	MaxResults *int64    `json:"maxResults,omitempty"`
}

// KeysMetadataRequest is the body of POST keys/get-metadata. Type is the
// active type filter, if any.
type KeysMetadataRequest struct {
	Keys []RedisString `json:"keys"`
	Type string        `json:"type,omitempty"`
}

// DeleteKeysRequest is the body of DELETE keys
type DeleteKeysRequest struct {
	KeyNames []RedisString `json:"keyNames"`
}

// DeleteKeysResponse is the result of DELETE keys
type DeleteKeysResponse struct {
	Affected int64 `json:"affected"`
}

// APIError is the error body returned by the keys API
type APIError struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Error      string `json:"error,omitempty"`
}
