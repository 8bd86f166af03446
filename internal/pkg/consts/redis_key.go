package consts

const (
	RateLimitKey = "ratelimit:"
)
