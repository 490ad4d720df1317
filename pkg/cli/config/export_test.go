package config

func NewSlackForTest(botToken, signingSecret string) *Slack {
	return &Slack{botToken: botToken, signingSecret: signingSecret}
}

func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{level: level, format: format, output: output}
}

func NewRepositoryForTest(backend, funderBackend, databaseURL, projectID string) *Repository {
	return &Repository{
		backend:       backend,
		funderBackend: funderBackend,
		databaseURL:   databaseURL,
		projectID:     projectID,
	}
}

// SetAirtableForTest configures the embedded Airtable group.
func (r *Repository) SetAirtableForTest(apiKey, baseID, funderBaseID, schemaPath, endpoint string) {
	r.airtable = Airtable{
		apiKey:       apiKey,
		baseID:       baseID,
		funderBaseID: funderBaseID,
		schemaPath:   schemaPath,
		endpoint:     endpoint,
	}
}
