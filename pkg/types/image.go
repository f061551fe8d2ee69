package types

// LocalImage is an image present on the engine host.
type LocalImage struct {
	ID          ImageID  // Image ID.
	RepoTags    []string // Repository tags, e.g. "nginx:1.25".
	RepoDigests []string // Repository digests, e.g. "nginx@sha256:...".
}

// CheckImage is one locally present image eligible for an update check.
type CheckImage struct {
	ID          ImageID // Local image ID.
	Name        string  // Image name as listed, without tag.
	OriginalTag string  // Tag as listed.
	Registry    string  // Resolved registry host, e.g. "index.docker.io".
	Repository  string  // Repository path, e.g. "library/nginx".
	Tag         string  // Tag to check.
	LocalDigest string  // Locally recorded content digest.
}

// UpdateImage is a CheckImage determined to need an update.
type UpdateImage struct {
	ID          ImageID // Local image ID.
	Name        string  // Image name as listed, without tag.
	OriginalTag string  // Tag as listed.
	TargetTag   string  // Tag to update to.
	LocalDigest string  // Locally recorded content digest.
	NewDigest   string  // Remote digest, empty for version updates.
}

// IsVersionUpdate reports whether the update moves to a different tag.
func (u UpdateImage) IsVersionUpdate() bool {
	return u.NewDigest == "" && u.TargetTag != u.OriginalTag
}

// Reference returns the name:tag reference of the update target.
func (u UpdateImage) Reference() string {
	return u.Name + ":" + u.TargetTag
}

// ContainerUpdateGroup holds all containers sharing one image slated for update.
type ContainerUpdateGroup struct {
	Image      UpdateImage
	Containers []ContainerInfo
}
