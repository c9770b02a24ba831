package s3

// Config carries the settings needed to construct the S3 client.
type Config struct {
	Region string

	// Endpoint overrides the service endpoint, for S3-compatible stores
	// such as LocalStack. ForcePathStyle usually goes with it.
	Endpoint       string
	ForcePathStyle bool

	MaxRetries int
}

// NewDefaultConfig returns a Config with sensible defaults. Region is left
// empty on purpose; callers must supply it.
func NewDefaultConfig() *Config {
	return &Config{
		MaxRetries: 3,
	}
}
