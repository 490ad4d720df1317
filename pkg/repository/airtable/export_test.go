package airtable

var (
	ParseContactInfo = parseContactInfo
	ParseGrantInfo   = parseGrantInfo
	ParseAmount      = parseAmount
	ValidRecordID    = validRecordID
)
