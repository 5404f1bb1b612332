package providers

import (
	"time"

	"golang.org/x/time/rate"
)

// Options carries the process-level settings shared by network providers.
type Options struct {
	OpenAIBaseURL string
	EmbedModel    string
	EmbedDim      int
	RateRPS       float64
	Timeout       time.Duration
}

func (o Options) withDefaults() Options {
	if o.OpenAIBaseURL == "" {
		o.OpenAIBaseURL = "https://api.openai.com/v1"
	}
	if o.EmbedModel == "" {
		o.EmbedModel = "text-embedding-3-small"
	}
	if o.EmbedDim <= 0 {
		o.EmbedDim = 1536
	}
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
	return o
}

func (o Options) limiter() *rate.Limiter {
	if o.RateRPS <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(o.RateRPS)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(o.RateRPS), burst)
}
