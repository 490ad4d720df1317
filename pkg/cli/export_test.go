package cli

var (
	PrintSearch = printSearch
	LoadEnvFile = loadEnvFile
	ApplySeed   = applySeed
	FirstLine   = firstLine
)
