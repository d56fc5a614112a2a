package google

// DriveScopes limits access to files this application creates or opens.
var DriveScopes = []string{
	"https://www.googleapis.com/auth/drive.file",
}
