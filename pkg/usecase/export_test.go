package usecase

// Formatting helpers exported for testing
var (
	ToCurrency    = toCurrency
	Ordinal       = ordinal
	FormatDate    = formatDate
	FormatTime    = formatTime
	ChunkText     = chunkText
	FitGroups     = fitGroups
	TruncateLabel = truncateLabel
)

const (
	MaxBlocks  = maxBlocks
	MsgFailure = msgFailure
)
