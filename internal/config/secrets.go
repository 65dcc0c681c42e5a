package config

// RedactedConfig returns a shallow copy of cfg with sensitive fields replaced
// by the redaction placeholder "***". Use this when logging or printing the
// active configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg // shallow copy of the top-level struct

	redact(&out.Database.DSN)
	redact(&out.Database.Password)
	redact(&out.Redis.Password)
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)
	redact(&out.Identity.Token)
	redact(&out.Assist.APIKey)
	redact(&out.Server.APIKey)

	return out
}

func redact(s *string) {
	if *s != "" {
		*s = "***"
	}
}
