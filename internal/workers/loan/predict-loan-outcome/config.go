package predictloanoutcome

import "time"

type Config struct {
	// Timeout bounds the whole job; the dispatcher applies its own
	// per-request timeout inside it.
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 20 * time.Second,
	}
}
