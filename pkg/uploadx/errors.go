package uploadx

import (
	"net/http"

	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/errx"
)

// Security issue tags. These drive security logging and alerting; the
// user-facing message on the result stays generic.
const (
	IssueDoubleExtension    = "DOUBLE_EXTENSION_DETECTED"
	IssueDangerousExtension = "DANGEROUS_EXTENSION"
	IssueUnknownSignature   = "UNKNOWN_FILE_SIGNATURE"
	IssueMIMESpoofing       = "MIME_TYPE_SPOOFING"
	IssueExtensionMismatch  = "EXTENSION_MISMATCH"
	IssueSVGSanitized       = "SVG_SANITIZED"
	IssueEmptySVG           = "EMPTY_SVG"
)

var ErrRegistry = errx.NewRegistry("UPLOAD")

var (
	CodeFileNotReadable = ErrRegistry.Register("FILE_NOT_READABLE", errx.TypeInternal, http.StatusInternalServerError, "Failed to read uploaded file")
	CodeFileEmpty       = ErrRegistry.Register("FILE_EMPTY", errx.TypeValidation, http.StatusBadRequest, "Uploaded file is empty")
	CodeFileTooLarge    = ErrRegistry.Register("FILE_TOO_LARGE", errx.TypeValidation, http.StatusBadRequest, "Uploaded file exceeds the maximum allowed size")
)

func ErrFileNotReadable(cause error) *errx.Error {
	return ErrRegistry.NewWithCause(CodeFileNotReadable, cause)
}
func ErrFileEmpty() *errx.Error    { return ErrRegistry.New(CodeFileEmpty) }
func ErrFileTooLarge() *errx.Error { return ErrRegistry.New(CodeFileTooLarge) }
