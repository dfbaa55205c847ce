package domain

// Messages carried by the upload API responses.
const (
	MsgImagesSaved     = "Images have been resized and saved."
	MsgResizeFailed    = "Error resizing images."
	MsgFileUploaded    = "File has been uploaded."
	MsgUploadFailed    = "Error uploading file."
	MsgNoFile          = "No file uploaded."
	MsgInvalidFileName = "Invalid file name."
	MsgTooLarge        = "File too large."
	MsgInternal        = "Internal server error"
	MsgNotFound        = "the requested resource cannot be found"
)

type ImageUploadResponse struct {
	Message   string `json:"message"`
	ImageName string `json:"imageName"`
}

type FileUploadResponse struct {
	Message  string `json:"message"`
	FileName string `json:"fileName"`
	// nil when the client sent no file_name field
	CustomFileName *string `json:"customFileName,omitempty"`
}

type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
