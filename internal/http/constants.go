package http

import "time"

// Generic HTTP / JSON strings
const (
	HTTPErrorInvalidJSONText   = "invalid JSON"
	HTTPErrorForbiddenText     = "forbidden"
	HTTPErrorForbiddenHostText = "forbidden host"
)

// Common JSON keys
const (
	JSONKeyOK       = "ok"
	JSONKeyError    = "error"
	JSONKeyState    = "state"
	JSONKeyAccepted = "accepted"

	JSONKeyLiveClients = "liveClients"
)

// Live stream
const (
	LiveMessageTypeRender = "render"

	liveSendBuffer   = 16
	liveWriteTimeout = 10 * time.Second
	livePongWait     = 60 * time.Second
	livePingPeriod   = (livePongWait * 9) / 10
	liveReadLimit    = 512
)

// Wallet messages
const (
	WalletConnectFailedText    = "wallet connection failed"
	WalletDisconnectFailedText = "wallet disconnect failed"
)
