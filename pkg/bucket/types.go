package bucket

import "fmt"

// Role identifies which side of a comparison an endpoint belongs to
type Role string

const (
	RolePrimary Role = "primary"
	RoleMirror  Role = "mirror"
)

// Endpoint holds the connection parameters of one bucket.
// Empty strings mean "not configured".
type Endpoint struct {
	BucketName      string
	CredentialsFile string
	Profile         string
	EndpointURL     string
	Region          string
}

// URI returns the s3:// URI of the bucket root
func (e Endpoint) URI() string {
	return fmt.Sprintf("s3://%s/", e.BucketName)
}

func (e Endpoint) String() string {
	if e.EndpointURL == "" {
		return e.BucketName
	}
	return fmt.Sprintf("%s@%s", e.BucketName, e.EndpointURL)
}
