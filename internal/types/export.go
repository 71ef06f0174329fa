package types

// ExportVersion is the only interchange version this build reads and
// writes. Import rejects anything else outright.
const ExportVersion = "1.0"

// ExportedSession is the portable representation of one session.
// Timestamps are RFC3339 text so files stay readable and diffable.
type ExportedSession struct {
	SessionUUID  string `json:"sessionUuid"`
	UserID       string `json:"userId"`
	ProjectName  string `json:"projectName"`
	Language     string `json:"language"`
	Platform     string `json:"platform"`
	IDEName      string `json:"ideName"`
	StartTime    string `json:"startTime"`
	EndTime      string `json:"endTime"`
	LastModified string `json:"lastModified"`
}

// ExportData is the interchange envelope.
type ExportData struct {
	ExportVersion string            `json:"exportVersion"`
	ExportTime    string            `json:"exportTime"`
	TotalSessions int               `json:"totalSessions"`
	Sessions      []ExportedSession `json:"sessions"`
}

// ImportResult reports what an import actually did.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}
