package config

// UploadConfig configures file upload validation and storage.
type UploadConfig struct {
	// StorageMode is "local" or "s3".
	StorageMode string
	LocalDir    string
	S3Bucket    string
	S3Region    string

	// MaxFileSize is the hard size limit in bytes.
	MaxFileSize int64
}

func loadUploadConfig() UploadConfig {
	return UploadConfig{
		StorageMode: getEnv("STORAGE_MODE", "local"),
		LocalDir:    getEnv("UPLOAD_DIR", "./uploads"),
		S3Bucket:    getEnv("AWS_BUCKET", "garage-uploads"),
		S3Region:    getEnv("AWS_REGION", "us-east-1"),
		MaxFileSize: getEnvInt64("UPLOAD_MAX_FILE_SIZE", 5*1024*1024),
	}
}
