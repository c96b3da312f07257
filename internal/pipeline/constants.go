package pipeline

// Default values for document registration and report output.
const (
	// DefaultSourceSystem is the assumed origin of open-items exports.
	DefaultSourceSystem = "SAP"

	// DefaultDocumentType tags registered workbooks.
	DefaultDocumentType = "OPEN_ITEMS_EXPORT"

	// DefaultFileMimeType is the mime type recorded for xlsx workbooks.
	DefaultFileMimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// ReportSuffix is appended to the source file name for the output
	// artifact, before the extension.
	ReportSuffix = "_analyzed"
)
