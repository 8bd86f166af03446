package consts

const (
	DefaultPage     = 1
	DefaultPageSize = 50
	MaxPageSize     = 200
)

const (
	OutboundIDPrefix = "wamid."
)
