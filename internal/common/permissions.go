package common

// File permission constants
const (
	// FilePermissionSecure is used for the config file, which may hold a password
	FilePermissionSecure = 0600

	// FilePermissionNormal is used for generated SQL files
	FilePermissionNormal = 0644

	// DirPermissionNormal is used for project data directories
	DirPermissionNormal = 0755
)
