package baratron

import (
	"github.com/anicoll/baratron-integration/internal/pkg/decoder"
	"github.com/anicoll/baratron-integration/pkg/toolweb"
)

// Errors returned by Get, for use with errors.Is.
var (
	ErrConnection = toolweb.ErrConnection
	ErrTimeout    = toolweb.ErrTimeout
	ErrProtocol   = toolweb.ErrProtocol
	ErrParse      = decoder.ErrParse
	ErrDecode     = decoder.ErrDecode
)
