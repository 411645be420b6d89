package types

// ErrorBody is the JSON body of every error response
type ErrorBody struct {
	ErrorMsg string `json:"error_msg"`
}

// UploadStatus is the per-file outcome of an upload. Exactly one field is set and
// it is serialized as {"Success": {...}} or {"Error": {"error_msg": "..."}}.
type UploadStatus struct {
	Success *FileInfo  `json:"Success,omitempty"`
	Error   *ErrorBody `json:"Error,omitempty"`
}

// NewUploadStatus builds the status for an upload result
func NewUploadStatus(info *FileInfo, err error) UploadStatus {
	if err != nil {
		return UploadStatus{Error: &ErrorBody{ErrorMsg: err.Error()}}
	}
	return UploadStatus{Success: info}
}

// Valid reports whether exactly one outcome is set
func (s UploadStatus) Valid() bool {
	return (s.Success != nil) != (s.Error != nil)
}
