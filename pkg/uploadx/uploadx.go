// Package uploadx validates uploaded files by content rather than by
// what the client claims about them. It checks filenames for dangerous
// extensions, sniffs magic numbers, cross-checks claimed MIME types and
// extensions against the detected format, and sanitizes SVG uploads.
package uploadx

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/fsx"
	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/logx"
)

// dangerousExtensions are executable or script extensions rejected
// wherever they appear in a filename, not only as the final extension.
// "photo.jpg.exe" and "shell.php.png" both fail.
var dangerousExtensions = map[string]bool{
	".exe": true, ".bat": true, ".cmd": true, ".com": true, ".scr": true,
	".pif": true, ".msi": true, ".dll": true, ".sh": true, ".bash": true,
	".ps1": true, ".vbs": true, ".js": true, ".jse": true, ".wsf": true,
	".jar": true, ".php": true, ".php3": true, ".php4": true, ".php5": true,
	".phtml": true, ".asp": true, ".aspx": true, ".jsp": true, ".cgi": true,
	".pl": true, ".py": true, ".rb": true, ".htaccess": true,
}

// ValidationResult is the outcome of content validation. SecurityIssue
// carries the machine-readable tag for security logging; Error stays
// user-friendly.
type ValidationResult struct {
	IsValid       bool   `json:"isValid"`
	Error         string `json:"error,omitempty"`
	DetectedType  string `json:"detectedType,omitempty"`
	SecurityIssue string `json:"securityIssue,omitempty"`
}

func reject(message, issue string) *ValidationResult {
	return &ValidationResult{IsValid: false, Error: message, SecurityIssue: issue}
}

// Validator validates uploaded files on any fsx backend.
type Validator struct {
	fs fsx.FileSystem
}

// NewValidator creates a validator over the given file system.
func NewValidator(fs fsx.FileSystem) *Validator {
	return &Validator{fs: fs}
}

// ValidateUploadedFile runs the full validation pipeline against the
// stored file, failing fast on the first violation. SVG files are
// sanitized and rewritten in place instead of being byte-sniffed.
func (v *Validator) ValidateUploadedFile(ctx context.Context, path, originalFilename, claimedMIME string) *ValidationResult {
	if issue := checkFilename(originalFilename); issue != nil {
		logx.WithFields(logx.Fields{
			"filename": originalFilename,
			"issue":    issue.SecurityIssue,
		}).Warn("upload rejected by filename check")
		return issue
	}

	ext := strings.ToLower(filepath.Ext(originalFilename))
	if ext == ".svg" {
		return v.validateSVG(ctx, path)
	}

	head, err := v.readHead(ctx, path)
	if err != nil {
		return reject("Failed to read uploaded file", "")
	}

	sig, ok := detectSignature(head)
	if !ok {
		return reject("File content does not match any supported image format", IssueUnknownSignature)
	}

	if claimedMIME != "" && canonicalMIME(strings.ToLower(claimedMIME)) != sig.mime {
		logx.WithFields(logx.Fields{
			"claimed":  claimedMIME,
			"detected": sig.mime,
		}).Warn("upload rejected: claimed MIME type does not match content")
		return &ValidationResult{
			IsValid:       false,
			Error:         "File type does not match its declared type",
			DetectedType:  sig.mime,
			SecurityIssue: IssueMIMESpoofing,
		}
	}

	if !sig.hasExtension(ext) {
		return &ValidationResult{
			IsValid:       false,
			Error:         "File extension does not match its content",
			DetectedType:  sig.mime,
			SecurityIssue: IssueExtensionMismatch,
		}
	}

	return &ValidationResult{IsValid: true, DetectedType: sig.mime}
}

// ValidateFileSize rejects empty files and files over maxSize. It is
// independent of content validation so routes can run it first, before
// reading any bytes.
func (v *Validator) ValidateFileSize(ctx context.Context, path string, maxSize int64) error {
	info, err := v.fs.Stat(ctx, path)
	if err != nil {
		return ErrFileNotReadable(err)
	}
	if info.Size == 0 {
		return ErrFileEmpty()
	}
	if info.Size > maxSize {
		return ErrFileTooLarge().
			WithDetail("size", info.Size).
			WithDetail("max_size", maxSize)
	}
	return nil
}

// checkFilename rejects dangerous extensions anywhere in a multi-dot
// filename. A plain "malware.exe" is a dangerous extension; an extension
// hidden among several, as in "photo.jpg.exe", is a double extension.
// Returns nil when the name is safe.
func checkFilename(filename string) *ValidationResult {
	parts := strings.Split(strings.ToLower(filepath.Base(filename)), ".")
	if len(parts) < 2 {
		return reject("File has no extension", IssueUnknownSignature)
	}
	if len(parts) == 2 {
		if dangerousExtensions["."+parts[1]] {
			return reject("File type is not allowed", IssueDangerousExtension)
		}
		return nil
	}
	for _, part := range parts[1:] {
		if dangerousExtensions["."+part] {
			return reject("File type is not allowed", IssueDoubleExtension)
		}
	}
	return nil
}

func (v *Validator) validateSVG(ctx context.Context, path string) *ValidationResult {
	content, err := v.fs.ReadFile(ctx, path)
	if err != nil {
		return reject("Failed to read uploaded file", "")
	}

	sanitized, modified, err := SanitizeSVG(content)
	if err != nil {
		return reject("SVG file contains no valid content", IssueEmptySVG)
	}

	if modified {
		if err := v.fs.WriteFile(ctx, path, sanitized); err != nil {
			return reject("Failed to store sanitized file", "")
		}
		logx.WithField("path", path).Warn("svg upload sanitized")
		return &ValidationResult{
			IsValid:       true,
			DetectedType:  "image/svg+xml",
			SecurityIssue: IssueSVGSanitized,
		}
	}

	return &ValidationResult{IsValid: true, DetectedType: "image/svg+xml"}
}

func (v *Validator) readHead(ctx context.Context, path string) ([]byte, error) {
	// Reading the whole object keeps the fsx contract small; uploads are
	// size-capped before content validation runs.
	data, err := v.fs.ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if len(data) > sniffLen {
		return data[:sniffLen], nil
	}
	return data, nil
}
